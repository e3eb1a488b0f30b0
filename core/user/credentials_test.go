package user

import (
	"regexp"
	"testing"
	"unicode/utf8"
)

func TestGenerateCredentials(t *testing.T) {
	usernameRegex := regexp.MustCompile(`^[a-z]{1,8}\d{4}$`)
	passwordRegex := regexp.MustCompile(`^[a-zA-Z0-9]{10}$`)

	tests := []struct {
		name     string
		fullName string
		wantBase string
	}{
		{name: "short name", fullName: "Jo Li", wantBase: "joli"},
		{name: "long name truncated to 8", fullName: "Christopher Montgomery", wantBase: "christop"},
		{name: "spaces squashed", fullName: "Jane  Ann  Doe", wantBase: "janeannd"},
		{name: "case folded", fullName: "JANE DOE", wantBase: "janedoe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uname, pwd, err := GenerateCredentials(tt.fullName)
			if err != nil {
				t.Fatalf("GenerateCredentials(): %v", err)
			}
			if !usernameRegex.MatchString(uname) {
				t.Errorf("username = %q; want base + 4 digits", uname)
			}
			if uname[:len(uname)-4] != tt.wantBase {
				t.Errorf("username base = %q; want %q", uname[:len(uname)-4], tt.wantBase)
			}
			if !passwordRegex.MatchString(pwd) {
				t.Errorf("password = %q; want 10 alphanumerics", pwd)
			}
		})
	}
}

func TestGenerateCredentials_multibyteName(t *testing.T) {
	// the 8th character must be cut on a rune boundary
	uname, _, err := GenerateCredentials("Abcdefg Žofie")
	if err != nil {
		t.Fatalf("GenerateCredentials(): %v", err)
	}
	if !utf8.ValidString(uname) {
		t.Fatalf("username %q is not valid UTF-8", uname)
	}
	base := uname[:len(uname)-4]
	if base != "abcdefgž" {
		t.Errorf("username base = %q; want %q", base, "abcdefgž")
	}
	if n := utf8.RuneCountInString(base); n != 8 {
		t.Errorf("username base has %d runes; want 8", n)
	}
}

func TestAdmissionNumber(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{1, "ADM0001"},
		{42, "ADM0042"},
		{9999, "ADM9999"},
		{12345, "ADM12345"},
	}
	for _, tt := range tests {
		if got := AdmissionNumber(tt.id); got != tt.want {
			t.Errorf("AdmissionNumber(%d) = %q; want %q", tt.id, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	usr := User{Username: "janedoe1234"}

	tests := []struct {
		name    string
		pwd     string
		wantErr bool
	}{
		{name: "too short", pwd: "Ab1!", wantErr: true},
		{name: "contains space", pwd: "super secret1", wantErr: true},
		{name: "all numeric", pwd: "1234567890", wantErr: true},
		{name: "too similar to username", pwd: "janedoe12345", wantErr: true},
		{name: "acceptable", pwd: "Sup3rSecret!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.pwd, usr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.pwd, err, tt.wantErr)
			}
		})
	}
}
