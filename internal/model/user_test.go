package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserClone_Independent(t *testing.T) {
	t.Parallel()

	updated := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	u := &User{
		ID:        1,
		Name:      "Ada",
		Email:     "ada@x.com",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: &updated,
	}

	c := u.Clone()
	c.Name = "Grace"
	*c.UpdatedAt = c.UpdatedAt.Add(time.Hour)

	if u.Name != "Ada" {
		t.Errorf("clone mutation leaked into original name: %q", u.Name)
	}
	if !u.UpdatedAt.Equal(updated) {
		t.Errorf("clone mutation leaked into original updated_at: %v", u.UpdatedAt)
	}
}

func TestUserClone_Nil(t *testing.T) {
	t.Parallel()

	var u *User
	if got := u.Clone(); got != nil {
		t.Errorf("Clone of nil = %+v, want nil", got)
	}
}

func TestUserJSON_OmitsUpdatedAtUntilFirstUpdate(t *testing.T) {
	t.Parallel()

	u := &User{
		ID:        1,
		Name:      "Ada",
		Email:     "ada@x.com",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "updated_at") {
		t.Errorf("unexpected updated_at in %s", data)
	}
}
