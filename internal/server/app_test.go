package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

type migratedManager struct {
	repomanager.RepositoryManager
	err error
}

func (m migratedManager) RunMigrations(context.Context, *sql.DB) error { return m.err }

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.MetricsAddr = "127.0.0.1:0"
	c.ShutdownTimeout = time.Second
	c.LogLevel = "error"
	return c
}

func withSeams(t *testing.T, db *sql.DB, migrateErr error, blobErr error) {
	t.Helper()
	origOpen, origRM, origBlobs := openDB, newRepoManager, newBlobStore
	t.Cleanup(func() { openDB, newRepoManager, newBlobStore = origOpen, origRM, origBlobs })

	openDB = func(string) (*sql.DB, error) { return db, nil }
	newRepoManager = func() repomanager.RepositoryManager {
		return migratedManager{RepositoryManager: repomanager.NewPostgresRepositoryManager(), err: migrateErr}
	}
	newBlobStore = func(context.Context, blobstore.S3Config) (upload.BlobStore, error) {
		if blobErr != nil {
			return nil, blobErr
		}
		return blobstore.NewMemoryStore(), nil
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	withSeams(t, db, nil, nil)

	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		migrateErr error
		blobErr    error
		wantErr    string
		wantClose  bool
	}{
		{name: "bad log level", mutate: func(c *config.Config) { c.LogLevel = "loud" }, wantErr: "log level"},
		{name: "migrations", migrateErr: errors.New("boom"), wantErr: "migrations error", wantClose: true},
		{name: "blob store", blobErr: errors.New("no creds"), wantErr: "blob store init error", wantClose: true},
		{name: "no bucket", mutate: func(c *config.Config) { c.S3Bucket = "" }, wantErr: upload.ErrNoBucket.Error(), wantClose: true},
		{name: "bad session cache", mutate: func(c *config.Config) { c.MaxSessions = 0 }, wantErr: "size", wantClose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			if tt.wantClose {
				mock.ExpectClose()
			}
			withSeams(t, db, tt.migrateErr, tt.blobErr)

			c := testConfig()
			if tt.mutate != nil {
				tt.mutate(c)
			}

			app, err := NewApp(context.Background(), c)
			require.Error(t, err)
			assert.Nil(t, app)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
