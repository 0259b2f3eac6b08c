// Package credential はページアクセストークンの暗号化と復号を提供する。
//
// トークンはDBに平文で保存せず、AES-256-CBCで暗号化した上で
// "IV16進:暗号文16進" 形式の文字列として保持する。
// 復号はGraph API呼び出しの直前にのみ行い、復号結果を
// 構造体フィールドやログに保持しない。
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Decrypter は暗号化されたページアクセストークンの復号機能のインターフェースを定義する。
type Decrypter interface {
	// Decrypt は "IV16進:暗号文16進" 形式の暗号化トークンを復号して平文を返す。
	// 形式が不正、またはパディングが不正な場合はエラーを返す。
	Decrypt(encrypted string) (string, error)
}

// aesCodec はDecrypterのAES-256-CBC実装。
// 鍵は設定値のSHA-256ダイジェスト32バイトを使用する。
type aesCodec struct {
	key [32]byte
}

// NewAESCodec はDecrypterの新しいインスタンスを生成する。
// secretには設定のENCRYPTION_KEYを渡す。任意長の文字列を
// SHA-256で32バイト鍵に正規化する。
func NewAESCodec(secret string) *aesCodec {
	return &aesCodec{key: sha256.Sum256([]byte(secret))}
}

// Decrypt は暗号化トークンを復号して平文を返す。
func (c *aesCodec) Decrypt(encrypted string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("暗号化トークンの形式が不正です")
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("IVのデコードに失敗しました: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("IVの長さが不正です: %d", len(iv))
	}

	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("暗号文のデコードに失敗しました: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("暗号文の長さが不正です: %d", len(ciphertext))
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", fmt.Errorf("暗号器の初期化に失敗しました: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// Encrypt は平文トークンを暗号化して "IV16進:暗号文16進" 形式で返す。
// ページ登録時とテストデータ生成で使用する。
func (c *aesCodec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", fmt.Errorf("暗号器の初期化に失敗しました: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("IVの生成に失敗しました: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// pkcs7Pad はPKCS#7パディングを付与する。
func pkcs7Pad(data []byte) []byte {
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad はPKCS#7パディングを除去する。
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("復号結果が空です")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, fmt.Errorf("パディングが不正です")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("パディングが不正です")
		}
	}
	return data[:len(data)-padLen], nil
}
