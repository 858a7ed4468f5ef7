package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tally/internal/core/entity"
	"tally/internal/core/id"
)

type testCatalog struct {
	entity.BaseCatalog
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Internal string `db:"-" json:"-"`
	NoTag    string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[testCatalog]()

	for _, want := range []string{"id", "deletion_mark", "deleted_at", "version", "attributes", "code", "name"} {
		assert.Contains(t, cols, want)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Internal")
	assert.NotContains(t, cols, "NoTag")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	cat := testCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				DeletedAt:    &now,
				Version:      5,
			},
		},
		Code:     "TEST",
		Name:     "Test Name",
		Internal: "hidden",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, &now, m["deleted_at"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
	assert.NotContains(t, m, "-")
}
