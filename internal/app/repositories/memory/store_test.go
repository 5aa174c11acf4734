package memory_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/repositories/memory"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
)

var _ = Describe("Store", func() {
	var (
		store    *memory.Store
		ctx      context.Context
		lecturer *models.User
		student  *models.User
	)

	BeforeEach(func() {
		store = memory.NewStore()
		ctx = context.Background()

		var err error
		lecturer, err = store.CreateUser(ctx, &models.User{Username: "alice", Password: "hash", Role: models.RoleLecturer})
		Expect(err).ToNot(HaveOccurred())
		student, err = store.CreateUser(ctx, &models.User{Username: "bob", Password: "hash", Role: models.RoleStudent})
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("users", func() {
		It("assigns increasing ids", func() {
			Expect(lecturer.ID).To(Equal(int64(1)))
			Expect(student.ID).To(Equal(int64(2)))
		})

		It("rejects a duplicate username", func() {
			_, err := store.CreateUser(ctx, &models.User{Username: "alice", Role: models.RoleStudent})
			Expect(err).To(MatchError(apperrors.ErrUsernameTaken))
		})

		It("looks users up by id and username", func() {
			byName, err := store.GetUserByUsername(ctx, "bob")
			Expect(err).ToNot(HaveOccurred())
			Expect(byName.ID).To(Equal(student.ID))

			byID, err := store.GetUserByID(ctx, lecturer.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(byID.Username).To(Equal("alice"))
		})

		It("reports unknown users as not found", func() {
			_, err := store.GetUserByID(ctx, 99)
			Expect(err).To(MatchError(apperrors.ErrUserNotFound))
			_, err = store.GetUserByUsername(ctx, "nobody")
			Expect(err).To(MatchError(apperrors.ErrUserNotFound))
		})
	})

	Describe("workshops", func() {
		It("forces the pending status on create", func() {
			w, err := store.CreateWorkshop(ctx, &models.Workshop{
				Title:      "Intro to Rust",
				LecturerID: lecturer.ID,
				Status:     models.StatusApproved,
				Date:       time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(w.ID).To(Equal(int64(1)))
			Expect(w.Status).To(Equal(models.StatusPending))
		})

		It("rejects an unknown lecturer", func() {
			_, err := store.CreateWorkshop(ctx, &models.Workshop{Title: "x", LecturerID: 42})
			Expect(err).To(MatchError(apperrors.ErrUserNotFound))
		})

		It("lists workshops in insertion order", func() {
			for _, title := range []string{"a", "b", "c"} {
				_, err := store.CreateWorkshop(ctx, &models.Workshop{Title: title, LecturerID: lecturer.ID})
				Expect(err).ToNot(HaveOccurred())
			}
			list, err := store.GetWorkshops(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[0].Title).To(Equal("a"))
			Expect(list[2].Title).To(Equal("c"))
		})

		It("returns copies that do not alias stored records", func() {
			w, _ := store.CreateWorkshop(ctx, &models.Workshop{Title: "a", LecturerID: lecturer.ID})
			w.Title = "mutated"
			again, err := store.GetWorkshopByID(ctx, w.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(again.Title).To(Equal("a"))
		})

		It("updates status of an existing workshop", func() {
			w, _ := store.CreateWorkshop(ctx, &models.Workshop{Title: "a", LecturerID: lecturer.ID})
			updated, err := store.UpdateWorkshopStatus(ctx, w.ID, models.StatusRejected)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(models.StatusRejected))

			back, err := store.UpdateWorkshopStatus(ctx, w.ID, models.StatusPending)
			Expect(err).ToNot(HaveOccurred())
			Expect(back.Status).To(Equal(models.StatusPending))
		})

		It("fails to update a missing workshop", func() {
			_, err := store.UpdateWorkshopStatus(ctx, 7, models.StatusApproved)
			Expect(err).To(MatchError(apperrors.ErrWorkshopNotFound))
		})
	})

	Describe("votes", func() {
		var workshop *models.Workshop

		BeforeEach(func() {
			var err error
			workshop, err = store.CreateWorkshop(ctx, &models.Workshop{Title: "a", LecturerID: lecturer.ID})
			Expect(err).ToNot(HaveOccurred())
		})

		It("stores a vote and finds it by student and workshop", func() {
			v, err := store.CreateVote(ctx, &models.StudentVote{WorkshopID: workshop.ID, StudentID: student.ID, Approved: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(v.ID).To(Equal(int64(1)))

			found, err := store.GetVoteByStudentAndWorkshop(ctx, student.ID, workshop.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(found.Approved).To(BeTrue())
		})

		It("rejects a second vote for the same pair", func() {
			_, err := store.CreateVote(ctx, &models.StudentVote{WorkshopID: workshop.ID, StudentID: student.ID, Approved: true})
			Expect(err).ToNot(HaveOccurred())
			_, err = store.CreateVote(ctx, &models.StudentVote{WorkshopID: workshop.ID, StudentID: student.ID, Approved: false})
			Expect(err).To(MatchError(apperrors.ErrDuplicateVote))
		})

		It("rejects votes on a missing workshop", func() {
			_, err := store.CreateVote(ctx, &models.StudentVote{WorkshopID: 99, StudentID: student.ID})
			Expect(err).To(MatchError(apperrors.ErrWorkshopNotFound))
		})

		It("reports a missing vote", func() {
			_, err := store.GetVoteByStudentAndWorkshop(ctx, student.ID, workshop.ID)
			Expect(err).To(MatchError(apperrors.ErrVoteNotFound))
		})

		It("returns only the requested workshop's votes", func() {
			other, _ := store.CreateWorkshop(ctx, &models.Workshop{Title: "b", LecturerID: lecturer.ID})
			_, _ = store.CreateVote(ctx, &models.StudentVote{WorkshopID: workshop.ID, StudentID: student.ID, Approved: true})
			_, _ = store.CreateVote(ctx, &models.StudentVote{WorkshopID: other.ID, StudentID: student.ID, Approved: false})

			votes, err := store.GetVotesByWorkshop(ctx, workshop.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(votes).To(HaveLen(1))
			Expect(votes[0].WorkshopID).To(Equal(workshop.ID))

			none, err := store.GetVotesByWorkshop(ctx, 1234)
			Expect(err).ToNot(HaveOccurred())
			Expect(none).To(BeEmpty())
		})

		It("accepts exactly one of many concurrent duplicate votes", func() {
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := store.CreateVote(ctx, &models.StudentVote{WorkshopID: workshop.ID, StudentID: student.ID, Approved: true})
					if err == nil {
						mu.Lock()
						successes++
						mu.Unlock()
					} else {
						Expect(err).To(MatchError(apperrors.ErrDuplicateVote))
					}
				}()
			}
			wg.Wait()
			Expect(successes).To(Equal(1))
		})
	})

	Describe("refresh tokens", func() {
		It("stores, revokes and revokes-all", func() {
			exp := time.Now().Add(time.Hour)
			Expect(store.CreateToken(ctx, "t1", student.ID, exp)).To(Succeed())
			Expect(store.CreateToken(ctx, "t2", student.ID, exp)).To(Succeed())

			rt, err := store.GetTokenByValue(ctx, "t1")
			Expect(err).ToNot(HaveOccurred())
			Expect(rt.IsRevoked).To(BeFalse())

			Expect(store.RevokeToken(ctx, "t1")).To(Succeed())
			rt, _ = store.GetTokenByValue(ctx, "t1")
			Expect(rt.IsRevoked).To(BeTrue())

			Expect(store.RevokeAllUserTokens(ctx, student.ID)).To(Succeed())
			rt, _ = store.GetTokenByValue(ctx, "t2")
			Expect(rt.IsRevoked).To(BeTrue())
		})

		It("reports unknown tokens", func() {
			_, err := store.GetTokenByValue(ctx, "nope")
			Expect(err).To(MatchError(apperrors.ErrTokenNotFound))
			Expect(store.RevokeToken(ctx, "nope")).To(MatchError(apperrors.ErrTokenNotFound))
		})
	})
})
