package enspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/enspec/config"
	"github.com/Konsultn-Engineering/enspec/database"
	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/logging"
)

type nopDB struct{}

func (nopDB) QueryContext(context.Context, string, ...any) (database.Rows, error) { return nil, nil }
func (nopDB) PingContext(context.Context) error                                   { return nil }
func (nopDB) Close() error                                                        { return nil }

func TestNewDispatcher(t *testing.T) {
	cfg := config.Default()
	_, cached := NewDispatcher(cfg, logging.Discard()).(*include.Cache)
	assert.True(t, cached)

	cfg.Dispatch = config.DispatchDirect
	_, direct := NewDispatcher(cfg, logging.Discard()).(include.Direct)
	assert.True(t, direct)
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Dialect = "mysql"

	db, err := New(cfg, nopDB{}, WithLogger(logging.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "mysql", db.Renderer().Dialect().Name())
	assert.Equal(t, []string{"where", "include", "order", "pagination", "tracking"}, db.Pipeline().Names())
	assert.NotNil(t, db.Session())
	assert.Nil(t, db.Connection())
	assert.NoError(t, db.Close())
}

func TestNewErrors(t *testing.T) {
	_, err := New(config.Default(), nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Dispatch = "sometimes"
	_, err = New(cfg, nopDB{})
	assert.ErrorContains(t, err, "invalid dispatch mode")

	_, err = Open(context.Background(), config.Default())
	assert.ErrorContains(t, err, "no database configured")
}
