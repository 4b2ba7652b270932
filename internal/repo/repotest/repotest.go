// Package repotest 测试用的一次性内存库
package repotest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"pharma-backoffice/internal/core/database"
	"pharma-backoffice/internal/repo"
)

var seq atomic.Int64

// NewStore 每次调用独占一个已迁移的内存库
func NewStore(t testing.TB) *repo.Store {
	t.Helper()
	name := fmt.Sprintf("%s_%d", strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name()), seq.Add(1))
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	s, err := repo.Open(context.Background(), db, repo.SchemaVersion)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
