package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/app/services"
	"github.com/yigit/workshophub/internal/bootstrap"
	"github.com/yigit/workshophub/internal/config"
	"github.com/yigit/workshophub/internal/pkg/cache"
	"github.com/yigit/workshophub/internal/pkg/events"
	"github.com/yigit/workshophub/internal/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	} `json:"error"`
}

type apiClient struct {
	router *gin.Engine
}

func (a apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).ToNot(HaveOccurred())
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed(), rec.Body.String())
	return rec.Code, env
}

func (a apiClient) register(username, role string) (int64, string) {
	code, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "Password123",
		"role":     role,
	})
	Expect(code).To(Equal(http.StatusCreated))

	var auth struct {
		Token struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"token"`
		User struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	Expect(json.Unmarshal(env.Data, &auth)).To(Succeed())
	Expect(auth.User.Role).To(Equal(role))
	return auth.User.ID, auth.Token.AccessToken
}

type workshopBody struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	LecturerID int64     `json:"lecturerId"`
	Status     string    `json:"status"`
	Date       string    `json:"date"`
	Stats      statsBody `json:"votingStats"`
}

type statsBody struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Declined int `json:"declined"`
}

var _ = Describe("HTTP API", func() {
	var (
		api       apiClient
		publisher *events.RecordingPublisher
		cfg       *config.Config
	)

	build := func() {
		repos := repositories.NewMemoryRepositories()
		publisher = &events.RecordingPublisher{}
		deps := bootstrap.BuildDependencies(cfg, repos, cache.NoopStatsCache{}, publisher,
			services.Options{BcryptCost: bcrypt.MinCost}, logger.Nop())
		api = apiClient{router: bootstrap.SetupRouter(cfg, deps, logger.Nop())}
	}

	BeforeEach(func() {
		cfg = &config.Config{}
		cfg.Server.Mode = "test"
		cfg.JWT = config.JWTConfig{
			Secret:                 "test-secret",
			AccessTokenExpiration:  "1h",
			RefreshTokenExpiration: "24h",
			Issuer:                 "workshophub-test",
		}
		build()
	})

	It("serves the health check without authentication", func() {
		code, env := api.do(http.MethodGet, "/health", "", nil)
		Expect(code).To(Equal(http.StatusOK))
		Expect(env.Success).To(BeTrue())
	})

	It("runs the full lecturer and student flow", func() {
		lecturerID, lecturer := api.register("lecturer", "lecturer")
		_, s1 := api.register("student1", "student")
		_, s2 := api.register("student2", "student")

		code, env := api.do(http.MethodPost, "/api/v1/workshops", lecturer, map[string]string{
			"title":       "Intro to Rust",
			"description": "Ownership and borrowing",
			"date":        "2024-01-01T10:00:00",
		})
		Expect(code).To(Equal(http.StatusCreated))
		var created workshopBody
		Expect(json.Unmarshal(env.Data, &created)).To(Succeed())
		Expect(created.ID).To(BeEquivalentTo(1))
		Expect(created.Status).To(Equal("pending"))
		Expect(created.LecturerID).To(Equal(lecturerID))
		Expect(created.Date).To(Equal("2024-01-01T10:00:00Z"))

		path := fmt.Sprintf("/api/v1/workshops/%d", created.ID)

		code, _ = api.do(http.MethodPost, path+"/vote", s1, map[string]bool{"approved": true})
		Expect(code).To(Equal(http.StatusCreated))
		code, _ = api.do(http.MethodPost, path+"/vote", s2, map[string]bool{"approved": false})
		Expect(code).To(Equal(http.StatusCreated))

		code, env = api.do(http.MethodGet, path+"/votes", s1, nil)
		Expect(code).To(Equal(http.StatusOK))
		var stats statsBody
		Expect(json.Unmarshal(env.Data, &stats)).To(Succeed())
		Expect(stats).To(Equal(statsBody{Total: 2, Approved: 1, Declined: 1}))

		code, env = api.do(http.MethodPost, path+"/vote", s1, map[string]bool{"approved": false})
		Expect(code).To(Equal(http.StatusBadRequest))
		Expect(env.Error.Code).To(Equal("VOTE_001"))

		code, env = api.do(http.MethodPatch, path+"/status", lecturer, map[string]string{"status": "approved"})
		Expect(code).To(Equal(http.StatusOK))
		var updated workshopBody
		Expect(json.Unmarshal(env.Data, &updated)).To(Succeed())
		Expect(updated.Status).To(Equal("approved"))

		code, env = api.do(http.MethodGet, "/api/v1/workshops", s2, nil)
		Expect(code).To(Equal(http.StatusOK))
		var listed []workshopBody
		Expect(json.Unmarshal(env.Data, &listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].Status).To(Equal("approved"))
		Expect(listed[0].Stats).To(Equal(statsBody{Total: 2, Approved: 1, Declined: 1}))

		Expect(publisher.Types()).To(Equal([]string{
			events.WorkshopCreated,
			events.VoteCast,
			events.VoteCast,
			events.WorkshopStatusChanged,
		}))
	})

	Describe("access control", func() {
		var lecturer, student string

		BeforeEach(func() {
			_, lecturer = api.register("lecturer", "lecturer")
			_, student = api.register("student", "student")
			code, _ := api.do(http.MethodPost, "/api/v1/workshops", lecturer, map[string]string{
				"title": "T", "description": "D", "date": "2024-01-01",
			})
			Expect(code).To(Equal(http.StatusCreated))
		})

		DescribeTable("status codes",
			func(method, path string, asStudent, asLecturer bool, body interface{}, want int) {
				token := ""
				switch {
				case asStudent:
					token = student
				case asLecturer:
					token = lecturer
				}
				code, env := api.do(method, path, token, body)
				Expect(code).To(Equal(want))
				Expect(env.Success).To(BeFalse())
			},
			Entry("list without a token", http.MethodGet, "/api/v1/workshops", false, false, nil, http.StatusUnauthorized),
			Entry("student creates a workshop", http.MethodPost, "/api/v1/workshops", true, false,
				map[string]string{"title": "T", "description": "D", "date": "2024-01-01"}, http.StatusForbidden),
			Entry("lecturer votes", http.MethodPost, "/api/v1/workshops/1/vote", false, true,
				map[string]bool{"approved": true}, http.StatusForbidden),
			Entry("student sets status", http.MethodPatch, "/api/v1/workshops/1/status", true, false,
				map[string]string{"status": "approved"}, http.StatusForbidden),
			Entry("vote without approved field", http.MethodPost, "/api/v1/workshops/1/vote", true, false,
				map[string]string{}, http.StatusBadRequest),
			Entry("vote on a missing workshop", http.MethodPost, "/api/v1/workshops/99/vote", true, false,
				map[string]bool{"approved": true}, http.StatusNotFound),
			Entry("non-numeric workshop id", http.MethodGet, "/api/v1/workshops/abc", true, false, nil, http.StatusBadRequest),
			Entry("missing workshop", http.MethodGet, "/api/v1/workshops/99", true, false, nil, http.StatusNotFound),
			Entry("unknown status", http.MethodPatch, "/api/v1/workshops/1/status", false, true,
				map[string]string{"status": "archived"}, http.StatusBadRequest),
			Entry("unparseable date", http.MethodPost, "/api/v1/workshops", false, true,
				map[string]string{"title": "T", "description": "D", "date": "next tuesday"}, http.StatusBadRequest),
		)

		It("explains a malformed workshop id", func() {
			code, env := api.do(http.MethodGet, "/api/v1/workshops/-3/votes", student, nil)
			Expect(code).To(Equal(http.StatusBadRequest))
			Expect(env.Error.Code).To(Equal("VAL_001"))
			Expect(env.Error.Message).To(ContainSubstring("positive integer"))
		})

		It("rejects status changes from another lecturer", func() {
			_, other := api.register("other", "lecturer")
			code, env := api.do(http.MethodPatch, "/api/v1/workshops/1/status", other, map[string]string{"status": "rejected"})
			Expect(code).To(Equal(http.StatusForbidden))
			Expect(env.Error.Code).To(Equal("FORBIDDEN"))
		})

		It("reports zero stats for an unknown workshop", func() {
			code, env := api.do(http.MethodGet, "/api/v1/workshops/42/votes", student, nil)
			Expect(code).To(Equal(http.StatusOK))
			var stats statsBody
			Expect(json.Unmarshal(env.Data, &stats)).To(Succeed())
			Expect(stats).To(Equal(statsBody{}))
		})
	})

	Describe("voting.require_pending", func() {
		BeforeEach(func() {
			cfg.Voting.RequirePending = true
			build()
		})

		It("closes voting once the workshop is decided", func() {
			_, lecturer := api.register("lecturer", "lecturer")
			_, student := api.register("student", "student")
			code, _ := api.do(http.MethodPost, "/api/v1/workshops", lecturer, map[string]string{
				"title": "T", "description": "D", "date": "2024-01-01",
			})
			Expect(code).To(Equal(http.StatusCreated))
			code, _ = api.do(http.MethodPatch, "/api/v1/workshops/1/status", lecturer, map[string]string{"status": "rejected"})
			Expect(code).To(Equal(http.StatusOK))

			code, env := api.do(http.MethodPost, "/api/v1/workshops/1/vote", student, map[string]bool{"approved": true})
			Expect(code).To(Equal(http.StatusConflict))
			Expect(env.Error.Code).To(Equal("VOTE_002"))
		})
	})

	Describe("auth endpoints", func() {
		It("logs in, refreshes, reads the profile and logs out", func() {
			api.register("alice", "student")

			code, env := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
				"username": "alice", "password": "Password123",
			})
			Expect(code).To(Equal(http.StatusOK))
			var auth struct {
				Token struct {
					AccessToken  string `json:"accessToken"`
					RefreshToken string `json:"refreshToken"`
				} `json:"token"`
			}
			Expect(json.Unmarshal(env.Data, &auth)).To(Succeed())

			code, env = api.do(http.MethodGet, "/api/v1/auth/me", auth.Token.AccessToken, nil)
			Expect(code).To(Equal(http.StatusOK))
			Expect(string(env.Data)).To(ContainSubstring(`"username":"alice"`))

			code, _ = api.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
				"refreshToken": auth.Token.RefreshToken,
			})
			Expect(code).To(Equal(http.StatusOK))

			code, _ = api.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
				"refreshToken": auth.Token.RefreshToken,
			})
			Expect(code).To(Equal(http.StatusUnauthorized))

			code, _ = api.do(http.MethodPost, "/api/v1/auth/logout", auth.Token.AccessToken, nil)
			Expect(code).To(Equal(http.StatusOK))
		})

		It("rejects wrong passwords and duplicate usernames", func() {
			api.register("bob", "lecturer")

			code, env := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
				"username": "bob", "password": "wrong-password",
			})
			Expect(code).To(Equal(http.StatusUnauthorized))
			Expect(env.Error.Code).To(Equal("AUTH_001"))

			code, env = api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
				"username": "bob", "password": "Password123", "role": "student",
			})
			Expect(code).To(Equal(http.StatusConflict))
			Expect(env.Error.Code).To(Equal("RES_002"))
		})
	})
})

var _ = Describe("Setup", func() {
	It("builds a working graph on the memory store with seeding enabled", func() {
		cfg := &config.Config{}
		cfg.Server.Mode = "test"
		cfg.Database.Driver = config.DriverMemory
		cfg.JWT = config.JWTConfig{Secret: "s", AccessTokenExpiration: "1h", RefreshTokenExpiration: "24h"}
		cfg.Seed.Enabled = true

		deps, err := bootstrap.Setup(context.Background(), cfg, logger.Nop())
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(deps.Close)

		Expect(deps.StatsCache).To(BeAssignableToTypeOf(cache.NoopStatsCache{}))
		Expect(deps.Publisher).To(BeAssignableToTypeOf(events.Fanout{}))
		Expect(deps.LiveHandler).ToNot(BeNil())

		workshops, err := deps.Services.WorkshopService.ListWorkshops(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(workshops).To(HaveLen(1))
	})
})
