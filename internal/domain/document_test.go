package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestClamp(t *testing.T) {
	tests := []struct {
		name     string
		in       PageRequest
		wantPage int
		wantSize int
	}{
		{name: "zero values get defaults", in: PageRequest{}, wantPage: 1, wantSize: DefaultPageSize},
		{name: "negative page clamped", in: PageRequest{Page: -5, PageSize: 10}, wantPage: 1, wantSize: 10},
		{name: "oversize page size capped", in: PageRequest{Page: 2, PageSize: 100000}, wantPage: 2, wantSize: MaxPageSize},
		{name: "in-range untouched", in: PageRequest{Page: 3, PageSize: 50}, wantPage: 3, wantSize: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantSize, got.PageSize)
		})
	}

	assert.Equal(t, 100, PageRequest{Page: 3, PageSize: 50}.Offset())
	assert.Equal(t, DefaultPageSize, PageRequest{}.Limit())
}

func TestAllowedFileType(t *testing.T) {
	assert.True(t, AllowedFileType(MimePDF))
	assert.True(t, AllowedFileType(MimeDOCX))
	assert.False(t, AllowedFileType("image/png"))
	assert.False(t, AllowedFileType(""))
}

func TestDocumentUpdateValidate(t *testing.T) {
	title := "t"
	blank := ""

	assert.NoError(t, DocumentUpdate{Title: &title}.Validate())
	assert.NoError(t, DocumentUpdate{Description: &blank}.Validate(), "description may be cleared")
	assert.Error(t, DocumentUpdate{Title: &blank}.Validate())
	assert.Error(t, DocumentUpdate{Category: &blank}.Validate())

	assert.True(t, DocumentUpdate{}.Empty())
	assert.False(t, DocumentUpdate{Title: &title}.Empty())
}

func TestCreateDocumentRequestValidate(t *testing.T) {
	req := CreateDocumentRequest{Title: "t", Category: "c"}
	assert.NoError(t, req.Validate())

	assert.Error(t, (&CreateDocumentRequest{Category: "c"}).Validate())
	assert.Error(t, (&CreateDocumentRequest{Title: "t"}).Validate())
}

func TestCreateUserRequestValidate(t *testing.T) {
	req := CreateUserRequest{Email: "u@shkolla.edu", PasswordHash: "h"}
	assert.NoError(t, req.Validate())
	assert.Equal(t, RoleStaf, req.Role, "role defaults to staf")

	bad := CreateUserRequest{Email: "u@shkolla.edu", PasswordHash: "h", Role: "superuser"}
	assert.Error(t, bad.Validate())
}
