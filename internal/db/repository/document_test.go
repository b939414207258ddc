package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkiva/internal/auth"
	"arkiva/internal/db"
	"arkiva/internal/db/repository"
	"arkiva/internal/domain"
)

type repoFixture struct {
	docs  *repository.DocumentRepo
	users *repository.UserRepo
	admin *domain.User
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)

	users := repository.NewUserRepo(writeDB, readDB)
	hash, err := auth.HashPassword("sekret123")
	require.NoError(t, err)
	admin, err := users.Create(context.Background(), domain.CreateUserRequest{
		Email:        "admin@shkolla.edu",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	require.NoError(t, err)

	return &repoFixture{
		docs:  repository.NewDocumentRepo(writeDB, readDB),
		users: users,
		admin: admin,
	}
}

func (f *repoFixture) seedDocument(t *testing.T, title, category string) *domain.Document {
	t.Helper()
	doc, err := f.docs.Create(context.Background(), domain.CreateDocumentRequest{
		Title:      title,
		Category:   category,
		FileName:   title + ".pdf",
		FileType:   domain.MimePDF,
		UploaderID: f.admin.ID,
	}, fmt.Sprintf("drive-%s-%s", category, title), "https://drive.example/"+title)
	require.NoError(t, err)
	return doc
}

func strPtr(s string) *string { return &s }

func TestDocumentCreateAndGet(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	created, err := f.docs.Create(ctx, domain.CreateDocumentRequest{
		Title:       "Rregullore e brendshme",
		Description: strPtr("Rregullorja e vitit shkollor"),
		Category:    "rregullore",
		Tags:        strPtr("rregullore,2026"),
		FileName:    "rregullore.pdf",
		FileType:    domain.MimePDF,
		UploaderID:  f.admin.ID,
	}, "drive-abc", "https://drive.example/abc")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := f.docs.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rregullore e brendshme", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Rregullorja e vitit shkollor", *got.Description)
	require.NotNil(t, got.UploaderID)
	assert.Equal(t, f.admin.ID, *got.UploaderID)
	assert.Equal(t, "drive-abc", got.DriveFileID)

	_, err = f.docs.GetByID(ctx, 9999)
	assert.True(t, domain.IsNotFound(err))
}

func TestDocumentDriveFileIDUnique(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	req := domain.CreateDocumentRequest{Title: "a", Category: "c", FileType: domain.MimePDF, UploaderID: f.admin.ID}
	_, err := f.docs.Create(ctx, req, "drive-dup", "https://drive.example/a")
	require.NoError(t, err)

	_, err = f.docs.Create(ctx, req, "drive-dup", "https://drive.example/b")
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestDocumentListFilters(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	f.seedDocument(t, "Rregullore e brendshme", "rregullore")
	f.seedDocument(t, "Vendim i bordit", "vendime")
	archived := f.seedDocument(t, "Plan mesimor 2025", "plane")
	_, err := f.docs.SetStatus(ctx, archived.ID, domain.StatusArchived)
	require.NoError(t, err)

	t.Run("defaults to active only", func(t *testing.T) {
		docs, total, err := f.docs.List(ctx, domain.DocumentFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, d := range docs {
			assert.Equal(t, domain.StatusActive, d.Status)
		}
	})

	t.Run("archived filter", func(t *testing.T) {
		docs, total, err := f.docs.List(ctx, domain.DocumentFilter{Status: domain.StatusArchived}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, docs, 1)
		assert.Equal(t, archived.ID, docs[0].ID)
	})

	t.Run("title substring search", func(t *testing.T) {
		docs, total, err := f.docs.List(ctx, domain.DocumentFilter{Query: "bordit"}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, docs, 1)
		assert.Equal(t, "Vendim i bordit", docs[0].Title)
	})

	t.Run("category filter", func(t *testing.T) {
		_, total, err := f.docs.List(ctx, domain.DocumentFilter{Category: "rregullore"}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("pagination keeps the filtered total", func(t *testing.T) {
		docs, total, err := f.docs.List(ctx, domain.DocumentFilter{}, domain.PageRequest{Page: 1, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, docs, 1)
	})
}

func TestDocumentUpdateMetadataPartial(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	doc := f.seedDocument(t, "old title", "vendime")

	updated, err := f.docs.UpdateMetadata(ctx, doc.ID, domain.DocumentUpdate{Title: strPtr("new title")})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, "vendime", updated.Category, "unset fields stay untouched")

	// An explicitly empty description clears the column.
	updated, err = f.docs.UpdateMetadata(ctx, doc.ID, domain.DocumentUpdate{Description: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Description)

	_, err = f.docs.UpdateMetadata(ctx, 9999, domain.DocumentUpdate{Title: strPtr("x")})
	assert.True(t, domain.IsNotFound(err))
}

func TestDocumentFileAndSummaryMutations(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	doc := f.seedDocument(t, "doc", "vendime")

	replaced, err := f.docs.UpdateFile(ctx, doc.ID, domain.MimeDOCX, "https://drive.example/new")
	require.NoError(t, err)
	assert.Equal(t, domain.MimeDOCX, replaced.FileType)
	assert.Equal(t, doc.DriveFileID, replaced.DriveFileID)

	summarized, err := f.docs.SetSummary(ctx, doc.ID, "permbledhje")
	require.NoError(t, err)
	require.NotNil(t, summarized.AISummary)
	assert.Equal(t, "permbledhje", *summarized.AISummary)
}

func TestDocumentDelete(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	doc := f.seedDocument(t, "doc", "vendime")

	require.NoError(t, f.docs.Delete(ctx, doc.ID))
	_, err := f.docs.GetByID(ctx, doc.ID)
	assert.True(t, domain.IsNotFound(err))

	err = f.docs.Delete(ctx, doc.ID)
	assert.True(t, domain.IsNotFound(err))
}
