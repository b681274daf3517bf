// Package store はベアラークレデンシャルのローカル永続化を提供する。
// セッションマネージャにはキー・バリュー操作のケイパビリティとして注入される。
package store

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

const (
	credentialBucket = "credentials"
	accessTokenKey   = "access_token"
)

// CredentialStore はベアラークレデンシャルの永続化インターフェース。
// テストではインメモリのフェイクに差し替える。
type CredentialStore interface {
	// Load は保存済みクレデンシャルを返す。未保存の場合は空文字列を返す。
	Load() (string, error)
	// Save はクレデンシャルを保存する。既存の値は上書きされる。
	Save(token string) error
	// Delete は保存済みクレデンシャルを削除する。未保存でもエラーにならない。
	Delete() error
}

// BoltCredentialStore はboltdbファイルにクレデンシャルを保存する実装。
type BoltCredentialStore struct {
	db *bolt.DB
}

// OpenBolt は指定パスのboltdbファイルを開き、バケットを初期化する。
// ファイルが存在しない場合は作成される。
func OpenBolt(path string) (*BoltCredentialStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize credential bucket: %w", err)
	}

	return &BoltCredentialStore{db: db}, nil
}

// Load は保存済みクレデンシャルを返す。未保存の場合は空文字列を返す。
func (s *BoltCredentialStore) Load() (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(credentialBucket)).Get([]byte(accessTokenKey))
		if raw != nil {
			token = string(raw)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	return token, nil
}

// Save はクレデンシャルを保存する。
func (s *BoltCredentialStore) Save(token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(credentialBucket)).Put([]byte(accessTokenKey), []byte(token))
	})
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Delete は保存済みクレデンシャルを削除する。
func (s *BoltCredentialStore) Delete() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(credentialBucket)).Delete([]byte(accessTokenKey))
	})
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Close はboltdbファイルを閉じる。
func (s *BoltCredentialStore) Close() error {
	return s.db.Close()
}

// compile-time interface check
var _ CredentialStore = (*BoltCredentialStore)(nil)
