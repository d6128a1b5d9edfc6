package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atinyakov/safedrive/internal/models"
)

func TestCommands_Apply(t *testing.T) {
	base := []models.Credential{{ID: "a", Service: "mail"}, {ID: "b", Service: "bank"}}

	tests := []struct {
		name string
		cmd  Command[models.Credential]
		want []string
	}{
		{"create prepends", CreateCommand[models.Credential]{Item: models.Credential{ID: "c"}}, []string{"c", "a", "b"}},
		{"update keeps position", UpdateCommand[models.Credential]{Item: models.Credential{ID: "b", Service: "bank2"}}, []string{"a", "b"}},
		{"update unknown id", UpdateCommand[models.Credential]{Item: models.Credential{ID: "zz"}}, []string{"a", "b"}},
		{"delete", DeleteCommand[models.Credential]{ID: "a"}, []string{"b"}},
		{"delete unknown id", DeleteCommand[models.Credential]{ID: "zz"}, []string{"a", "b"}},
		{"replace", ReplaceCommand[models.Credential]{Items: []models.Credential{{ID: "x"}}}, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cmd.Apply(base)
			var gotIDs []string
			for _, c := range got {
				gotIDs = append(gotIDs, c.ID)
			}
			assert.Equal(t, tt.want, gotIDs)
			assert.Equal(t, "mail", base[0].Service)
			assert.Equal(t, "bank", base[1].Service)
			assert.Len(t, base, 2)
		})
	}
}

func TestUpdateCommand_ReplacesContent(t *testing.T) {
	base := []models.Credential{{ID: "a", Service: "mail"}, {ID: "b", Service: "bank"}}
	got := UpdateCommand[models.Credential]{Item: models.Credential{ID: "b", Service: "bank2"}}.Apply(base)
	assert.Equal(t, "bank2", got[1].Service)
	assert.Equal(t, "bank", base[1].Service)
}
