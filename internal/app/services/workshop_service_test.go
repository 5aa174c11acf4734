package services_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/models/dto"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/app/services"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/events"
)

var _ = Describe("Workshop and voting services", func() {
	var (
		f        *fixture
		ctx      context.Context
		lecturer *models.User
		bob      *models.User
		carol    *models.User
	)

	newWorkshop := func(title string) *models.Workshop {
		w, err := f.services.WorkshopService.CreateWorkshop(ctx, lecturer.ID, &dto.CreateWorkshopRequest{
			Title:       title,
			Description: "desc",
			Date:        "2024-01-01T10:00:00",
		})
		Expect(err).ToNot(HaveOccurred())
		return w
	}

	BeforeEach(func() {
		f = newFixture(services.Options{})
		ctx = context.Background()
		lecturer = f.register("alice", models.RoleLecturer)
		bob = f.register("bob", models.RoleStudent)
		carol = f.register("carol", models.RoleStudent)
	})

	It("runs the full approval scenario", func() {
		w := newWorkshop("Intro to Rust")
		Expect(w.ID).To(BeNumerically(">", 0))
		Expect(w.Status).To(Equal(models.StatusPending))
		Expect(w.Date).To(Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

		_, err := f.services.VotingService.CastVote(ctx, bob.ID, w.ID, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(f.services.VotingService.GetVotingStats(ctx, w.ID)).To(Equal(models.VotingStats{Total: 1, Approved: 1, Declined: 0}))

		_, err = f.services.VotingService.CastVote(ctx, bob.ID, w.ID, false)
		Expect(err).To(MatchError(apperrors.ErrDuplicateVote))

		_, err = f.services.VotingService.CastVote(ctx, carol.ID, w.ID, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(f.services.VotingService.GetVotingStats(ctx, w.ID)).To(Equal(models.VotingStats{Total: 2, Approved: 1, Declined: 1}))

		updated, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, w.ID, models.StatusApproved)
		Expect(err).ToNot(HaveOccurred())
		Expect(updated.Status).To(Equal(models.StatusApproved))

		Expect(f.publisher.Types()).To(Equal([]string{
			events.WorkshopCreated, events.VoteCast, events.VoteCast, events.WorkshopStatusChanged,
		}))
	})

	Describe("CreateWorkshop", func() {
		It("refuses students", func() {
			_, err := f.services.WorkshopService.CreateWorkshop(ctx, bob.ID, &dto.CreateWorkshopRequest{
				Title: "x", Description: "y", Date: "2024-01-01",
			})
			Expect(err).To(MatchError(apperrors.ErrPermissionDenied))
		})

		It("reports invalid fields", func() {
			_, err := f.services.WorkshopService.CreateWorkshop(ctx, lecturer.ID, &dto.CreateWorkshopRequest{
				Title: "", Description: "y", Date: "next tuesday",
			})
			Expect(err).To(MatchError(apperrors.ErrValidationFailed))
			Expect(apperrors.Details(err)).To(HaveKey("title"))
			Expect(apperrors.Details(err)).To(HaveKey("date"))
		})
	})

	Describe("reads", func() {
		It("enriches workshops with their tallies", func() {
			a := newWorkshop("a")
			b := newWorkshop("b")
			_, _ = f.services.VotingService.CastVote(ctx, bob.ID, a.ID, true)
			_, _ = f.services.VotingService.CastVote(ctx, carol.ID, a.ID, true)
			_, _ = f.services.VotingService.CastVote(ctx, carol.ID, b.ID, false)

			list, err := f.services.WorkshopService.ListWorkshops(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].VotingStats).To(Equal(models.VotingStats{Total: 2, Approved: 2}))
			Expect(list[1].VotingStats).To(Equal(models.VotingStats{Total: 1, Declined: 1}))

			one, err := f.services.WorkshopService.GetWorkshop(ctx, b.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(one.Title).To(Equal("b"))
		})

		It("reports a missing workshop", func() {
			_, err := f.services.WorkshopService.GetWorkshop(ctx, 999)
			Expect(err).To(MatchError(apperrors.ErrWorkshopNotFound))
		})

		It("returns a zero tally for unknown workshops", func() {
			stats, err := f.services.VotingService.GetVotingStats(ctx, 999)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(models.VotingStats{}))
		})
	})

	Describe("CastVote", func() {
		It("lets a student vote on different workshops", func() {
			a := newWorkshop("a")
			b := newWorkshop("b")
			_, err := f.services.VotingService.CastVote(ctx, bob.ID, a.ID, true)
			Expect(err).ToNot(HaveOccurred())
			_, err = f.services.VotingService.CastVote(ctx, bob.ID, b.ID, false)
			Expect(err).ToNot(HaveOccurred())
		})

		It("refuses lecturers", func() {
			w := newWorkshop("a")
			_, err := f.services.VotingService.CastVote(ctx, lecturer.ID, w.ID, true)
			Expect(err).To(MatchError(apperrors.ErrPermissionDenied))
		})

		It("reports a missing workshop", func() {
			_, err := f.services.VotingService.CastVote(ctx, bob.ID, 77, true)
			Expect(err).To(MatchError(apperrors.ErrWorkshopNotFound))
		})

		It("invalidates the cached tally", func() {
			w := newWorkshop("a")
			_, _ = f.services.VotingService.GetVotingStats(ctx, w.ID)
			_, err := f.services.VotingService.CastVote(ctx, bob.ID, w.ID, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(f.cache.invalidations).To(Equal(1))

			stats, err := f.services.VotingService.GetVotingStats(ctx, w.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats.Total).To(Equal(1))
		})

		It("does not cache a tally that a concurrent vote made stale", func() {
			w := newWorkshop("a")
			f.wrapVotes(func(votes repositories.VoteRepository) repositories.VoteRepository {
				return &afterReadVoteRepository{
					VoteRepository: votes,
					onRead: func() {
						_, err := f.services.VotingService.CastVote(ctx, bob.ID, w.ID, true)
						Expect(err).ToNot(HaveOccurred())
					},
				}
			})

			stale, err := f.services.VotingService.GetVotingStats(ctx, w.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stale.Total).To(Equal(0))
			Expect(f.cache.staleFills).To(Equal(1))

			stats, err := f.services.VotingService.GetVotingStats(ctx, w.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats).To(Equal(models.VotingStats{Total: 1, Approved: 1, Declined: 0}))
		})

		It("keeps voting open after a decision by default", func() {
			w := newWorkshop("a")
			_, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, w.ID, models.StatusRejected)
			Expect(err).ToNot(HaveOccurred())
			_, err = f.services.VotingService.CastVote(ctx, bob.ID, w.ID, true)
			Expect(err).ToNot(HaveOccurred())
		})

		Context("when votes require a pending workshop", func() {
			BeforeEach(func() {
				f = newFixture(services.Options{RequirePending: true})
				lecturer = f.register("alice", models.RoleLecturer)
				bob = f.register("bob", models.RoleStudent)
			})

			It("rejects votes on decided workshops", func() {
				w := newWorkshop("a")
				_, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, w.ID, models.StatusApproved)
				Expect(err).ToNot(HaveOccurred())
				_, err = f.services.VotingService.CastVote(ctx, bob.ID, w.ID, true)
				Expect(err).To(MatchError(apperrors.ErrVotingClosed))
			})
		})
	})

	Describe("UpdateStatus", func() {
		It("allows any transition, including back to pending", func() {
			w := newWorkshop("a")
			for _, status := range []models.WorkshopStatus{models.StatusRejected, models.StatusApproved, models.StatusPending} {
				updated, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, w.ID, status)
				Expect(err).ToNot(HaveOccurred())
				Expect(updated.Status).To(Equal(status))
			}
		})

		It("does not touch existing votes", func() {
			w := newWorkshop("a")
			_, _ = f.services.VotingService.CastVote(ctx, bob.ID, w.ID, true)
			_, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, w.ID, models.StatusRejected)
			Expect(err).ToNot(HaveOccurred())
			Expect(f.services.VotingService.GetVotingStats(ctx, w.ID)).To(Equal(models.VotingStats{Total: 1, Approved: 1}))
		})

		It("rejects unknown statuses", func() {
			w := newWorkshop("a")
			_, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, w.ID, "archived")
			Expect(err).To(MatchError(apperrors.ErrValidationFailed))
		})

		It("reports a missing workshop", func() {
			_, err := f.services.WorkshopService.UpdateStatus(ctx, lecturer.ID, 12345, models.StatusApproved)
			Expect(err).To(MatchError(apperrors.ErrWorkshopNotFound))
		})

		It("refuses lecturers who do not own the workshop", func() {
			w := newWorkshop("a")
			other := f.register("zed", models.RoleLecturer)
			_, err := f.services.WorkshopService.UpdateStatus(ctx, other.ID, w.ID, models.StatusApproved)
			Expect(err).To(MatchError(apperrors.ErrNotWorkshopOwner))
			Expect(err).To(MatchError(apperrors.ErrPermissionDenied))
		})

		It("refuses students", func() {
			w := newWorkshop("a")
			_, err := f.services.WorkshopService.UpdateStatus(ctx, bob.ID, w.ID, models.StatusApproved)
			Expect(err).To(MatchError(apperrors.ErrPermissionDenied))
		})
	})
})
