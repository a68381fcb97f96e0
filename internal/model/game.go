package model

import "time"

// Account はメンバーシップDBのアカウント行。
// JSONキーはブラウザクライアントが参照するカラム名をそのまま使う。
type Account struct {
	AccountName   string     `db:"AccountName" json:"AccountName"`
	CreateDate    time.Time  `db:"CreateDate" json:"CreateDate"`
	LastLoginDate *time.Time `db:"LastLoginDate" json:"LastLoginDate"`
	Cash          int64      `db:"Cash" json:"Cash"`
}

// Character はワールドDBのキャラクター行。
// LoginStatusが1のときのみオンラインとみなす。
type Character struct {
	CharacterID    int64      `db:"CharacterID" json:"CharacterID"`
	CharacterName  string     `db:"CharacterName" json:"CharacterName"`
	AccountName    string     `db:"AccountName" json:"AccountName"`
	CharacterClass int        `db:"CharacterClass" json:"CharacterClass"`
	ClassName      string     `db:"-" json:"ClassName"`
	CharacterLevel int        `db:"CharacterLevel" json:"CharacterLevel"`
	CurHP          int64      `db:"CurHP" json:"CurHP"`
	CurMP          int64      `db:"CurMP" json:"CurMP"`
	Money          int64      `db:"Money" json:"Money"`
	CreateDate     time.Time  `db:"CreateDate" json:"CreateDate"`
	LastLoginDate  *time.Time `db:"LastLoginDate" json:"LastLoginDate"`
	LoginStatus    int        `db:"LoginStatus" json:"LoginStatus"`
}

// Online はキャラクターがログイン中かどうかを返す。
func (c *Character) Online() bool {
	return c.LoginStatus == 1
}

// InventoryItem はキャラクターの所持アイテム行。
type InventoryItem struct {
	ItemID       int64  `db:"ItemID" json:"ItemID"`
	OwnerID      int64  `db:"OwnerID" json:"OwnerID"`
	ItemName     string `db:"ItemName" json:"ItemName"`
	Quantity     int    `db:"Quantity" json:"Quantity"`
	EnhanceLevel int    `db:"EnhanceLevel" json:"EnhanceLevel"`
	SlotNo       int    `db:"SlotNo" json:"SlotNo"`
}

// LogEntry はワールドDBのゲームログ行。
type LogEntry struct {
	LogID         int64     `db:"LogID" json:"LogID"`
	LogType       string    `db:"LogType" json:"LogType"`
	LogMessage    string    `db:"LogMessage" json:"LogMessage"`
	CharacterName string    `db:"CharacterName" json:"CharacterName"`
	LogDate       time.Time `db:"LogDate" json:"LogDate"`
}

// 既知のログ種別。フィルタとしては未知の値も受け付ける。
const (
	LogTypeLogin       = "Login"
	LogTypeLogout      = "Logout"
	LogTypeTrade       = "Trade"
	LogTypeEnhancement = "Enhancement"
	LogTypeDeath       = "Death"
	LogTypeLevelUp     = "LevelUp"
	LogTypeAdmin       = "Admin"
)

var classNames = map[int]string{
	1:  "Warrior",
	2:  "Archer",
	3:  "Sorceress",
	4:  "Cleric",
	5:  "Academic",
	6:  "Kali",
	7:  "Assassin",
	8:  "Lancea",
	9:  "Machina",
	10: "Vandar",
}

// ClassName はCharacterClassの数値から職業名を返す。
// 1〜10以外の値には"Unknown"を返す。
func ClassName(class int) string {
	if name, ok := classNames[class]; ok {
		return name
	}
	return "Unknown"
}

// DashboardStats はダッシュボードの集計値。
type DashboardStats struct {
	TotalAccounts   int64 `json:"totalAccounts"`
	TotalCharacters int64 `json:"totalCharacters"`
	OnlinePlayers   int64 `json:"onlinePlayers"`
}

// サーバーステータスの値。
const (
	ServerStatusRunning             = "running"
	ServerStatusDatabaseUnreachable = "database_unreachable"
)

// ServerStatus はゲームサーバーの稼働状況。
// Uptimeはプロセス起動からの経過秒数。
type ServerStatus struct {
	Status        string  `json:"status"`
	OnlinePlayers int64   `json:"onlinePlayers"`
	Uptime        float64 `json:"uptime"`
}
