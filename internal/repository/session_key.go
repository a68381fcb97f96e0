package repository

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// sessionKey はCookieで受け取ったセッションIDから保存用のキーを導出する。
// ストアにはCookieの値そのものを保存しない。
func sessionKey(secret []byte, sessionID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}
