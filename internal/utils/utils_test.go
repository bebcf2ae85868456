package utils

import (
	"bytes"
	"strings"
	"testing"

	"gkh-portal/internal/constants"
	"gkh-portal/internal/models"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"короткий", 20, "короткий"},
		{"ровно", 5, "ровно"},
		{"длинное сообщение", 8, "длинное…"},
		{"abc", 0, ""},
		{"abc", 1, "…"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail("  Ivan.Petrov@Example.RU ")
	if err != nil {
		t.Fatalf("ValidateEmail: %v", err)
	}
	if got != "ivan.petrov@example.ru" {
		t.Errorf("got %q", got)
	}
	for _, bad := range []string{"", "ivan", "ivan@localhost", "Ivan <ivan@example.ru>"} {
		if _, err := ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q): expected error", bad)
		}
	}
}

func TestValidatePasswordAndName(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := ValidatePassword("long-enough-password"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ValidateName("   "); err == nil {
		t.Error("expected error for blank name")
	}
	if name, err := ValidateName(" Анна "); err != nil || name != "Анна" {
		t.Errorf("ValidateName = %q, %v", name, err)
	}
}

func TestIsRoleOrHigher(t *testing.T) {
	if !IsRoleOrHigher(constants.ROLE_ADMIN, constants.ROLE_USER) {
		t.Error("admin must satisfy user requirement")
	}
	if IsRoleOrHigher(constants.ROLE_USER, constants.ROLE_ADMIN) {
		t.Error("user must not satisfy admin requirement")
	}
	if IsRoleOrHigher("OWNER", constants.ROLE_USER) {
		t.Error("unknown role must be rejected")
	}
}

func TestImageHelpers(t *testing.T) {
	if !IsImage("image/PNG; charset=binary") || ImageExtension("image/jpeg") != ".jpg" {
		t.Error("expected png/jpeg to be recognised")
	}
	if IsImage("application/pdf") || IsImage("video/mp4") {
		t.Error("non-images must be rejected")
	}
	if got := ExtractFilenameFromURL("/api/media/abc.png"); got != "abc.png" {
		t.Errorf("ExtractFilenameFromURL = %q", got)
	}
}

func TestGetUserDisplayName(t *testing.T) {
	if got := GetUserDisplayName(models.Owner{ID: 3, Name: "Анна", Email: "a@b.ru"}); got != "Анна (a@b.ru)" {
		t.Errorf("got %q", got)
	}
	if got := GetUserDisplayName(models.Owner{ID: 3}); got != "Пользователь 3" {
		t.Errorf("got %q", got)
	}
}

func TestGenerateQuestionQRCode(t *testing.T) {
	link, err := QuestionLink("https://portal.example.ru/", 42)
	if err != nil || link != "https://portal.example.ru/support/questions/42" {
		t.Fatalf("QuestionLink = %q, %v", link, err)
	}
	png, err := GenerateQuestionQRCode("https://portal.example.ru", 42)
	if err != nil {
		t.Fatalf("GenerateQuestionQRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("expected PNG output")
	}
	if _, err := QuestionLink("", 42); err == nil || !strings.Contains(err.Error(), "не настроен") {
		t.Errorf("expected error for empty base URL, got %v", err)
	}
}
