package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medrag/internal/config"
	"medrag/internal/db"
	"medrag/internal/model"
	appErr "medrag/internal/pkg/errors"
)

const testEmbedDim = 768

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port := 5432
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}
	user := os.Getenv("TEST_DB_USER")
	if user == "" {
		user = "postgres"
	}
	dbName := os.Getenv("TEST_DB_NAME")
	if dbName == "" {
		dbName = "medrag_test"
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   dbName,
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func testVector(seed float32) []float32 {
	vec := make([]float32, testEmbedDim)
	vec[0] = seed
	vec[1] = 1
	return vec
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	conn := newTestDB(t)
	repo := NewUserRepo(conn)
	ctx := context.Background()

	user := &model.User{
		ID:           uniqueID("u"),
		Username:     uniqueID("alice"),
		PasswordHash: "hash",
		Role:         model.RoleDoctor,
		Ctime:        time.Now().Unix(),
		Mtime:        time.Now().Unix(),
	}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, model.RoleDoctor, got.Role)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Username, got.Username)

	dup := *user
	dup.ID = uniqueID("u")
	require.ErrorIs(t, repo.Create(ctx, &dup), appErr.ErrConflict)

	_, err = repo.GetByUsername(ctx, "no-such-user")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentRepo_CRUD(t *testing.T) {
	conn := newTestDB(t)
	repo := NewDocumentRepo(conn)
	ctx := context.Background()

	doc := &model.Document{
		ID:         uniqueID("d"),
		Filename:   "guide.pdf",
		Role:       model.RoleNurse,
		UploadedBy: uniqueID("u"),
		FileKey:    uniqueID("d") + ".pdf",
		ChunkCount: 3,
		Ctime:      time.Now().Unix(),
	}
	require.NoError(t, repo.Create(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Filename, got.Filename)
	require.Equal(t, doc.ChunkCount, got.ChunkCount)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	found := false
	for _, d := range docs {
		if d.ID == doc.ID {
			found = true
		}
	}
	require.True(t, found)

	require.NoError(t, repo.Delete(ctx, doc.ID))
	_, err = repo.GetByID(ctx, doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, doc.ID), appErr.ErrNotFound)
}

func TestChunkRepo_InsertSearchPending(t *testing.T) {
	conn := newTestDB(t)
	repo := NewChunkRepo(conn)
	ctx := context.Background()

	docID := uniqueID("d")
	t.Cleanup(func() { _ = repo.DeleteByDoc(ctx, docID) })

	now := time.Now().Unix()
	chunks := []*model.DocumentChunk{
		{
			ChunkID:   docID + "-0",
			DocID:     docID,
			Seq:       0,
			Text:      "aspirin dosage is 325mg",
			Source:    "drug_guide.pdf",
			Role:      model.RoleDoctor,
			Page:      1,
			Embedding: testVector(0.5),
			Ctime:     now,
		},
		{
			ChunkID: docID + "-1",
			DocID:   docID,
			Seq:     1,
			Text:    "pending chunk",
			Source:  "drug_guide.pdf",
			Role:    model.RoleDoctor,
			Page:    2,
			Ctime:   now,
		},
	}
	require.NoError(t, repo.Insert(ctx, chunks))

	matches, err := repo.Search(ctx, testVector(0.5), 10)
	require.NoError(t, err)
	var seen []string
	for _, m := range matches {
		if m.DocID == docID {
			seen = append(seen, m.ChunkID)
			require.Equal(t, "aspirin dosage is 325mg", m.Text)
			require.InDelta(t, 1.0, float64(m.Score), 0.001)
		}
	}
	require.Equal(t, []string{docID + "-0"}, seen)

	pending, err := repo.ListPending(ctx, 100)
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, c := range pending {
		ids[c.ChunkID] = true
	}
	require.True(t, ids[docID+"-1"])
	require.False(t, ids[docID+"-0"])

	require.NoError(t, repo.UpdateEmbedding(ctx, docID+"-1", testVector(0.5)))
	pending, err = repo.ListPending(ctx, 100)
	require.NoError(t, err)
	for _, c := range pending {
		require.NotEqual(t, docID+"-1", c.ChunkID)
	}

	require.NoError(t, repo.DeleteByDoc(ctx, docID))
	matches, err = repo.Search(ctx, testVector(0.5), 10)
	require.NoError(t, err)
	for _, m := range matches {
		require.NotEqual(t, docID, m.DocID)
	}
}

func TestEmbeddingCacheRepo_SaveGetCleanup(t *testing.T) {
	conn := newTestDB(t)
	repo := NewEmbeddingCacheRepo(conn)
	ctx := context.Background()

	hash := uniqueID("hash")
	item := &model.EmbeddingCache{
		ModelName:   "test-model",
		TaskType:    "RETRIEVAL_QUERY",
		ContentHash: hash,
		Embedding:   testVector(0.25),
		Ctime:       time.Now().Unix(),
	}
	require.NoError(t, repo.Save(ctx, item))

	values, ok, err := repo.Get(ctx, "test-model", "RETRIEVAL_QUERY", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, float32(0.25), values[0])

	_, ok, err = repo.Get(ctx, "test-model", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.DeleteBefore(ctx, time.Now().Unix()+1)
	require.NoError(t, err)
	_, ok, err = repo.Get(ctx, "test-model", "RETRIEVAL_QUERY", hash)
	require.NoError(t, err)
	require.False(t, ok)
}
