package credential

import (
	"strings"
	"testing"
)

// TestEncryptDecrypt_RoundTrip は暗号化したトークンが元の平文に復号されることをテストする。
func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	codec := NewAESCodec("test-encryption-key")

	tokens := []string{
		"EAABsbCS1234567890",
		"x",
		"ちょうど16バイトを超える長いトークン文字列",
	}

	for _, token := range tokens {
		encrypted, err := codec.Encrypt(token)
		if err != nil {
			t.Fatalf("Encrypt(%q) がエラーを返した: %v", token, err)
		}

		decrypted, err := codec.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt がエラーを返した: %v", err)
		}
		if decrypted != token {
			t.Errorf("復号結果 = %q, want %q", decrypted, token)
		}
	}
}

// TestEncrypt_Format は暗号化結果が "IV16進:暗号文16進" 形式であることをテストする。
func TestEncrypt_Format(t *testing.T) {
	codec := NewAESCodec("test-encryption-key")

	encrypted, err := codec.Encrypt("EAABsbCS1234567890")
	if err != nil {
		t.Fatalf("Encrypt がエラーを返した: %v", err)
	}

	ivHex, cipherHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		t.Fatalf("暗号化結果に区切り文字がない: %q", encrypted)
	}
	if len(ivHex) != 32 {
		t.Errorf("IV部の長さ = %d, want 32", len(ivHex))
	}
	if len(cipherHex) == 0 || len(cipherHex)%32 != 0 {
		t.Errorf("暗号文部の長さが不正: %d", len(cipherHex))
	}
}

// TestDecrypt_WrongKey は異なる鍵での復号が平文を返さないことをテストする。
func TestDecrypt_WrongKey(t *testing.T) {
	token := "EAABsbCS1234567890"
	encrypted, err := NewAESCodec("correct-key").Encrypt(token)
	if err != nil {
		t.Fatalf("Encrypt がエラーを返した: %v", err)
	}

	decrypted, err := NewAESCodec("wrong-key").Decrypt(encrypted)
	if err == nil && decrypted == token {
		t.Error("異なる鍵で元の平文が復号された")
	}
}

// TestDecrypt_MalformedInput は不正な形式の入力がエラーを返すことをテストする。
func TestDecrypt_MalformedInput(t *testing.T) {
	codec := NewAESCodec("test-encryption-key")

	inputs := []string{
		"",
		"no-separator",
		"nothex:deadbeef",
		"00112233445566778899aabbccddeeff:nothex",
		"0011:00112233445566778899aabbccddeeff", // IVが短い
		"00112233445566778899aabbccddeeff:",     // 暗号文が空
		"00112233445566778899aabbccddeeff:0011", // ブロック長でない暗号文
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := codec.Decrypt(in); err == nil {
				t.Errorf("Decrypt(%q) がエラーを返さなかった", in)
			}
		})
	}
}

// TestDecrypterInterface はaesCodecがインターフェースを正しく実装していることをテストする。
func TestDecrypterInterface(t *testing.T) {
	var _ Decrypter = NewAESCodec("secret")
}
