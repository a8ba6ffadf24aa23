package port

import "context"

// FileStorage defines blob storage operations. Paths are relative keys
// such as "claims/42/<uuid>.pdf"; backends map them to their own namespace.
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}
