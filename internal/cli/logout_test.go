package cli

import "testing"

func TestLogout(t *testing.T) {
	tests := []struct {
		name       string
		forgetUser bool
		wantUser   string
	}{
		{"keeps user", false, "user0"},
		{"forget user", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())

			cfg := CLIConfig{APIKey: "fc_testkey123", User: "user0", ServerURL: "http://myhost:9090/dav"}
			if err := saveConfig(cfg); err != nil {
				t.Fatalf("save: %v", err)
			}

			if err := runLogout(tt.forgetUser); err != nil {
				t.Fatalf("logout: %v", err)
			}

			loaded, err := loadConfig()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.APIKey != "" {
				t.Errorf("api_key = %q, want empty", loaded.APIKey)
			}
			if loaded.User != tt.wantUser {
				t.Errorf("user = %q, want %q", loaded.User, tt.wantUser)
			}
			if loaded.ServerURL != "http://myhost:9090/dav" {
				t.Errorf("server_url = %q, want it preserved", loaded.ServerURL)
			}
		})
	}
}

func TestLogoutWhenNotLoggedIn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := runLogout(true); err != nil {
		t.Fatalf("logout with no config: %v", err)
	}
}
