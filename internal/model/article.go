package model

import "time"

// Article は投稿記事を表す。
// UserIDは作成時に確定する所有者であり、編集・削除の認可判定に使われる。
type Article struct {
	ID        string
	Title     string
	Content   string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwnedBy は記事の所有者が指定ユーザーかどうかを返す。
func (a *Article) IsOwnedBy(userID string) bool {
	return a.UserID == userID
}
