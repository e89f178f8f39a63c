// Package crypto 提供健康数据的字段级加密
//
// 使用 AES-256-GCM，nonce 前置存储在密文中。
// 读数和报警记录落库前必须经过本包加密。
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Encryptor AES-256-GCM 加密器
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor 创建加密器（key 必须为 32 字节）
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryptor: create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt 加密字符串，返回 base64 编码的密文（nonce 前置）
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	encrypted, err := e.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Decrypt 解码 base64 密文并解密
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt: base64 decode: %w", err)
	}

	plaintext, err := e.DecryptBytes(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes 加密数据，返回 nonce + 密文
func (e *Encryptor) EncryptBytes(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("encrypt: generate nonce: %w", err)
	}

	// Seal 将密文追加到 nonce 之后，结果为 nonce + ciphertext
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

// DecryptBytes 从数据头部取出 nonce 并解密其余部分
func (e *Encryptor) DecryptBytes(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("decrypt: ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
