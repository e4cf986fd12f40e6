package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestUserService(t *testing.T) {
	svc, err := NewUserService(filepath.Join(t.TempDir(), "users.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	var user *User

	t.Run("Create", func(t *testing.T) {
		user, err = svc.Create("test@example.com", "password123", "Test User")
		if err != nil {
			t.Fatal(err)
		}
		if user.ID.IsZero() {
			t.Error("expected non-zero ID")
		}

		t.Run("duplicate email", func(t *testing.T) {
			if _, err := svc.Create("test@example.com", "other", "Dup"); !errors.Is(err, ErrUserExists) {
				t.Errorf("err = %v, want ErrUserExists", err)
			}
		})

		t.Run("missing fields", func(t *testing.T) {
			if _, err := svc.Create("", "pw", "x"); err == nil {
				t.Error("expected error for empty email")
			}
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		got, err := svc.Authenticate("test@example.com", "password123")
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != user.ID {
			t.Error("authenticated wrong user")
		}
		if _, err := svc.Authenticate("test@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
		if _, err := svc.Authenticate("missing@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := svc.GetByEmail("test@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != user.ID {
			t.Error("wrong user")
		}
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		got, err := svc.UpdateProfile(user.ID, "Renamed")
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "Renamed" {
			t.Errorf("Name = %q", got.Name)
		}
	})

	t.Run("ChangePassword", func(t *testing.T) {
		if err := svc.ChangePassword(user.ID, "wrong", "next"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
		if err := svc.ChangePassword(user.ID, "password123", "newpassword"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Authenticate("test@example.com", "newpassword"); err != nil {
			t.Errorf("new password rejected: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := svc.Delete(user.ID, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
		if err := svc.Delete(user.ID, "newpassword"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Get(user.ID); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("err = %v, want ErrUserNotFound", err)
		}
	})
}

func TestStarterFiles(t *testing.T) {
	files, err := StarterFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d starter files, want 3", len(files))
	}
	names := map[string]bool{}
	for _, f := range files {
		names[f.Name] = true
		if f.ID.IsZero() {
			t.Error("starter file without ID")
		}
	}
	for _, want := range []string{"App.js", "App.css", "index.js"} {
		if !names[want] {
			t.Errorf("missing starter file %q", want)
		}
	}

	// Each call mints fresh IDs.
	again, err := StarterFiles()
	if err != nil {
		t.Fatal(err)
	}
	if files[0].ID == again[0].ID {
		t.Error("StarterFiles must generate fresh IDs per call")
	}
}
