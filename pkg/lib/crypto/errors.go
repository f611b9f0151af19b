package crypto

import "errors"

var (
	// ErrInvalidKeySize 密钥长度错误
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrKeyExists 密钥已存在
	ErrKeyExists = errors.New("key already exists")

	// ErrKeyNotFound 密钥不存在
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKeyFile 密钥文件格式错误
	ErrInvalidKeyFile = errors.New("invalid key file")

	// ErrInvalidPassword 密码缺失或错误
	ErrInvalidPassword = errors.New("invalid password")

	// ErrDecryptionFailed 解密失败
	ErrDecryptionFailed = errors.New("decryption failed")
)
