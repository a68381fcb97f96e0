package model

// PagedResult は総件数付きの一覧レスポンス。
type PagedResult[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// LogPage はゲームログの一覧レスポンス。
// 総件数は算出しないため、len(Data) == Limitであれば次のページが存在し得る。
type LogPage struct {
	Data  []LogEntry `json:"data"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// InventoryList は所持アイテムの一覧レスポンス。
type InventoryList struct {
	Data []InventoryItem `json:"data"`
}
