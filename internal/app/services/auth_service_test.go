package services_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/models/dto"
	"github.com/yigit/workshophub/internal/app/services"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
)

var _ = Describe("AuthService", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture(services.Options{})
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("creates the user and returns tokens", func() {
			resp, err := f.services.AuthService.Register(ctx, &dto.RegisterRequest{
				Username: "alice", Password: "password123", Role: models.RoleLecturer,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.User.Username).To(Equal("alice"))
			Expect(resp.User.Role).To(Equal("lecturer"))
			Expect(resp.Token.AccessToken).ToNot(BeEmpty())
			Expect(resp.Token.RefreshToken).ToNot(BeEmpty())
			Expect(resp.Token.TokenType).To(Equal("Bearer"))

			stored, err := f.repos.UserRepository.GetUserByUsername(ctx, "alice")
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Password).ToNot(Equal("password123"))
		})

		It("rejects a taken username", func() {
			f.register("alice", models.RoleLecturer)
			_, err := f.services.AuthService.Register(ctx, &dto.RegisterRequest{
				Username: "alice", Password: "password123", Role: models.RoleStudent,
			})
			Expect(err).To(MatchError(apperrors.ErrUsernameTaken))
		})

		It("reports every invalid field", func() {
			_, err := f.services.AuthService.Register(ctx, &dto.RegisterRequest{
				Username: "a!", Password: "short", Role: "admin",
			})
			Expect(err).To(MatchError(apperrors.ErrValidationFailed))
			details := apperrors.Details(err)
			Expect(details).To(HaveKey("username"))
			Expect(details).To(HaveKey("password"))
			Expect(details).To(HaveKey("role"))
		})

		It("flags a bad username distinctly", func() {
			_, err := f.services.AuthService.Register(ctx, &dto.RegisterRequest{
				Username: "no spaces", Password: "password123", Role: models.RoleStudent,
			})
			Expect(err).To(MatchError(apperrors.ErrInvalidUsername))
			Expect(err).To(MatchError(apperrors.ErrValidationFailed))
			Expect(apperrors.Details(err)).To(HaveKeyWithValue("username", "username has an invalid format"))

			_, err = f.services.AuthService.Register(ctx, &dto.RegisterRequest{
				Username: "fine", Password: "short", Role: models.RoleStudent,
			})
			Expect(err).To(MatchError(apperrors.ErrValidationFailed))
			Expect(err).ToNot(MatchError(apperrors.ErrInvalidUsername))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			f.register("bob", models.RoleStudent)
		})

		It("accepts the right password", func() {
			resp, err := f.services.AuthService.Login(ctx, &dto.LoginRequest{Username: "bob", Password: "password123"})
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.User.Role).To(Equal("student"))
		})

		It("rejects a wrong password and an unknown user alike", func() {
			_, err := f.services.AuthService.Login(ctx, &dto.LoginRequest{Username: "bob", Password: "wrong-pass1"})
			Expect(err).To(MatchError(apperrors.ErrInvalidCredentials))
			_, err = f.services.AuthService.Login(ctx, &dto.LoginRequest{Username: "nobody", Password: "password123"})
			Expect(err).To(MatchError(apperrors.ErrInvalidCredentials))
		})
	})

	Describe("RefreshToken", func() {
		It("rotates the refresh token", func() {
			resp, err := f.services.AuthService.Login(ctx, &dto.LoginRequest{Username: f.register("carol", models.RoleStudent).Username, Password: "password123"})
			Expect(err).ToNot(HaveOccurred())

			next, err := f.services.AuthService.RefreshToken(ctx, resp.Token.RefreshToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(next.RefreshToken).ToNot(Equal(resp.Token.RefreshToken))

			_, err = f.services.AuthService.RefreshToken(ctx, resp.Token.RefreshToken)
			Expect(err).To(MatchError(apperrors.ErrTokenRevoked))
		})

		It("rejects unknown tokens", func() {
			_, err := f.services.AuthService.RefreshToken(ctx, "does-not-exist")
			Expect(err).To(MatchError(apperrors.ErrTokenNotFound))
		})
	})

	Describe("Logout", func() {
		It("revokes all refresh tokens of the user", func() {
			user := f.register("dave", models.RoleStudent)
			resp, err := f.services.AuthService.Login(ctx, &dto.LoginRequest{Username: "dave", Password: "password123"})
			Expect(err).ToNot(HaveOccurred())

			Expect(f.services.AuthService.Logout(ctx, user.ID)).To(Succeed())
			_, err = f.services.AuthService.RefreshToken(ctx, resp.Token.RefreshToken)
			Expect(err).To(MatchError(apperrors.ErrTokenRevoked))
		})
	})

	Describe("GetCurrentUser", func() {
		It("returns the user record", func() {
			user := f.register("erin", models.RoleLecturer)
			got, err := f.services.AuthService.GetCurrentUser(ctx, user.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Username).To(Equal("erin"))
		})

		It("reports a missing user", func() {
			_, err := f.services.AuthService.GetCurrentUser(ctx, 404)
			Expect(err).To(MatchError(apperrors.ErrUserNotFound))
		})
	})
})
