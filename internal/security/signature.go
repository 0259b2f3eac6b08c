// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signaturePrefix はFacebookが署名ヘッダーに付与するプレフィックス。
const signaturePrefix = "sha256="

// SignatureVerifier はWebhookリクエストの署名検証機能のインターフェースを定義する。
// Webhook受信時、リクエストボディの解析より前に使用される。
type SignatureVerifier interface {
	// Verify はX-Hub-Signature-256ヘッダーの値を生のリクエストボディと照合する。
	// ヘッダーが欠落している、プレフィックスが不正、16進デコードに失敗する、
	// またはダイジェストが一致しない場合はfalseを返す。
	// 検証失敗の理由は呼び出し側に区別して返さない（fail closed）。
	Verify(rawBody []byte, header string) bool
}

// hmacVerifier はSignatureVerifierのHMAC-SHA256実装。
// アプリシークレットを鍵として、JSON解析前の生バイト列に対して
// ダイジェストを計算する。解析後の再シリアライズ結果を使うと
// キー順序や空白の差異で正当なリクエストを拒否してしまう。
type hmacVerifier struct {
	secret []byte
}

// NewSignatureVerifier はSignatureVerifierの新しいインスタンスを生成する。
// secretにはFacebookアプリのApp Secretを渡す。
func NewSignatureVerifier(secret string) *hmacVerifier {
	return &hmacVerifier{secret: []byte(secret)}
}

// Verify はX-Hub-Signature-256ヘッダーの値を生のリクエストボディと照合する。
// 比較はhmac.Equalによる定数時間比較で行い、タイミング攻撃を防ぐ。
func (v *hmacVerifier) Verify(rawBody []byte, header string) bool {
	if header == "" {
		return false
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	return hmac.Equal(provided, expected)
}
