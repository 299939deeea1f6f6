// Package model はドメインモデルを定義する。
package model

import "time"

// Bookmark はユーザーが保存したブックマークを表す。
// UserIDによる所有者制約がストレージ層で強制される。
// 編集操作は存在せず、作成と削除のみのイミュータブルなレコード。
type Bookmark struct {
	ID        string
	UserID    string
	Title     string
	URL       string
	CreatedAt time.Time
}
