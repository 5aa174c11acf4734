package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yigit/workshophub/internal/config"
)

func envOf(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

var _ = Describe("LoadConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeYAML := func(content string) string {
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("uses the memory driver by default", func() {
		cfg, err := config.Load("", envOf(map[string]string{"JWT_SECRET": "s"}))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Database.Driver).To(Equal(config.DriverMemory))
		Expect(cfg.UsesPostgres()).To(BeFalse())
		Expect(cfg.Voting.RequirePending).To(BeFalse())
		Expect(cfg.Server.Port).To(Equal("8080"))
	})

	It("ignores a missing config file", func() {
		_, err := config.Load(filepath.Join(dir, "nope.yaml"), envOf(map[string]string{"JWT_SECRET": "s"}))
		Expect(err).ToNot(HaveOccurred())
	})

	It("requires a JWT secret", func() {
		_, err := config.Load("", envOf(nil))
		Expect(err).To(MatchError(ContainSubstring("JWT secret is required")))
	})

	It("lets environment variables override the file", func() {
		path := writeYAML(`
server:
  port: "9000"
jwt:
  secret: from-file
voting:
  require_pending: false
redis:
  enabled: true
  addr: cache:6379
`)
		cfg, err := config.Load(path, envOf(map[string]string{
			"SERVER_PORT":            "9100",
			"VOTING_REQUIRE_PENDING": "true",
			"REDIS_DB":               "2",
		}))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal("9100"))
		Expect(cfg.JWT.Secret).To(Equal("from-file"))
		Expect(cfg.Voting.RequirePending).To(BeTrue())
		Expect(cfg.Redis.Enabled).To(BeTrue())
		Expect(cfg.Redis.Addr).To(Equal("cache:6379"))
		Expect(cfg.Redis.DB).To(Equal(2))
	})

	It("rejects malformed environment values", func() {
		_, err := config.Load("", envOf(map[string]string{"JWT_SECRET": "s", "REDIS_DB": "two"}))
		Expect(err).To(MatchError(ContainSubstring("REDIS_DB")))
	})

	It("reads allowed websocket origins from yaml and env", func() {
		path := writeYAML("server:\n  allowed_origins:\n    - https://app.example.com\n")
		cfg, err := config.Load(path, envOf(map[string]string{"JWT_SECRET": "s"}))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Server.AllowedOrigins).To(Equal([]string{"https://app.example.com"}))

		cfg, err = config.Load(path, envOf(map[string]string{
			"JWT_SECRET":             "s",
			"SERVER_ALLOWED_ORIGINS": " https://a.example , http://localhost:3000,,",
		}))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Server.AllowedOrigins).To(Equal([]string{"https://a.example", "http://localhost:3000"}))
	})

	It("rejects origins that are not scheme and host", func() {
		for _, origin := range []string{"app.example.com", "https://app.example.com/login"} {
			_, err := config.Load("", envOf(map[string]string{"JWT_SECRET": "s", "SERVER_ALLOWED_ORIGINS": origin}))
			Expect(err).To(MatchError(ContainSubstring("allowed origin")), origin)
		}
	})

	It("rejects unknown drivers", func() {
		_, err := config.Load("", envOf(map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "sqlite"}))
		Expect(err).To(MatchError(ContainSubstring("unsupported database driver")))
	})

	It("builds the postgres connection string", func() {
		cfg, err := config.Load("", envOf(map[string]string{
			"JWT_SECRET": "s", "DB_DRIVER": "postgres", "DB_HOST": "db", "DB_NAME": "ws",
		}))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.UsesPostgres()).To(BeTrue())
		Expect(cfg.GetPostgresConnectionString()).To(Equal("postgres://postgres:postgres@db:5432/ws?sslmode=disable"))
	})

	It("loads variables from a .env file without overriding the environment", func() {
		path := filepath.Join(dir, ".env")
		Expect(os.WriteFile(path, []byte("WORKSHOPHUB_TEST_ONLY=from-dotenv\n"), 0o600)).To(Succeed())
		Expect(os.Unsetenv("WORKSHOPHUB_TEST_ONLY")).To(Succeed())
		DeferCleanup(os.Unsetenv, "WORKSHOPHUB_TEST_ONLY")

		Expect(config.LoadDotEnv(path, filepath.Join(dir, "missing.env"))).To(Succeed())
		Expect(os.Getenv("WORKSHOPHUB_TEST_ONLY")).To(Equal("from-dotenv"))
	})
})
