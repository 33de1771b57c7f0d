package ballot_test

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/ballot"
)

var _ = Describe("Engine", func() {

	var service *Service
	var clock *fakeClock

	BeforeEach(func() {
		service, clock = newTestService()
	})

	Describe("creating elections", func() {

		It("should reject callers without the admin capability", func() {
			_, err := service.CreateElection(
				"brutus", "Consul of Rome", "Senate", "Annual consular election",
				clock.Now().Add(time.Minute), clock.Now().Add(time.Hour),
			)
			Ω(errors.Is(err, ErrUnauthorized)).Should(BeTrue())
		})

		It("should reject a start time that is not in the future", func() {
			_, err := service.CreateElection(
				owner, "Consul of Rome", "Senate", "Annual consular election",
				clock.Now(), clock.Now().Add(time.Hour),
			)
			Ω(errors.Is(err, ErrInvalidSchedule)).Should(BeTrue())
		})

		It("should reject an end time at or before the start time", func() {
			start := clock.Now().Add(time.Minute)
			for _, end := range []time.Time{start, start.Add(-time.Second)} {
				_, err := service.CreateElection(
					owner, "Consul of Rome", "Senate", "Annual consular election", start, end,
				)
				Ω(errors.Is(err, ErrInvalidSchedule)).Should(BeTrue())
			}
		})

		It("should reject blank descriptive fields", func() {
			fields := [][3]string{
				{"", "Senate", "Annual consular election"},
				{"Consul of Rome", "   ", "Annual consular election"},
				{"Consul of Rome", "Senate", ""},
			}

			for _, f := range fields {
				_, err := service.CreateElection(
					owner, f[0], f[1], f[2],
					clock.Now().Add(time.Minute), clock.Now().Add(time.Hour),
				)
				Ω(errors.Is(err, ErrInvalidInput)).Should(BeTrue())
			}
		})

		It("should assign sequential ids starting at 1", func() {
			for i := uint64(1); i <= 3; i++ {
				id, err := service.CreateElection(
					owner, "Consul of Rome", "Senate", "Annual consular election",
					clock.Now().Add(time.Minute), clock.Now().Add(time.Hour),
				)
				Ω(err).ShouldNot(HaveOccurred())
				Ω(id).Should(Equal(i))
			}
		})

		It("should create elections that are active with no candidates", func() {
			id := createTestElection(service, clock)

			info, err := service.GetElection(id)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(info.Active).Should(BeTrue())
			Ω(info.CandidatesCount).Should(BeZero())
			Ω(info.Status).Should(Equal("scheduled"))
		})

	})

	Describe("registering candidates", func() {

		var electionID uint64

		BeforeEach(func() {
			electionID = createTestElection(service, clock)
		})

		It("should reject callers without the admin capability", func() {
			_, err := service.AddCandidate("brutus", electionID, "Gaius")
			Ω(errors.Is(err, ErrUnauthorized)).Should(BeTrue())
		})

		It("should reject unknown elections", func() {
			_, err := service.AddCandidate(owner, 42, "Gaius")
			Ω(errors.Is(err, ErrNotFound)).Should(BeTrue())
		})

		It("should reject blank candidate names", func() {
			_, err := service.AddCandidate(owner, electionID, "  ")
			Ω(errors.Is(err, ErrInvalidInput)).Should(BeTrue())
		})

		It("should assign candidate ids sequentially from 1", func() {
			for i, name := range []string{"Gaius", "Fabius", "Quintus"} {
				id, err := service.AddCandidate(owner, electionID, name)
				Ω(err).ShouldNot(HaveOccurred())
				Ω(id).Should(Equal(uint64(i + 1)))
			}

			info, err := service.GetElection(electionID)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(info.CandidatesCount).Should(Equal(uint64(3)))
		})

		It("should allow candidates before the window opens and during it", func() {
			_, err := service.AddCandidate(owner, electionID, "Gaius")
			Ω(err).ShouldNot(HaveOccurred())

			clock.Advance(20 * time.Second)
			_, err = service.AddCandidate(owner, electionID, "Fabius")
			Ω(err).ShouldNot(HaveOccurred())
		})

		It("should store candidates with a zero tally", func() {
			id, err := service.AddCandidate(owner, electionID, "Gaius")
			Ω(err).ShouldNot(HaveOccurred())

			candidate, err := service.GetCandidate(electionID, id)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(candidate.Name).Should(Equal("Gaius"))
			Ω(candidate.VoteCount).Should(BeZero())
		})

	})

	Describe("casting ballots", func() {

		var electionID uint64

		BeforeEach(func() {
			electionID = createTestElection(service, clock)

			_, err := service.AddCandidate(owner, electionID, "Alice")
			Ω(err).ShouldNot(HaveOccurred())
			_, err = service.AddCandidate(owner, electionID, "Bob")
			Ω(err).ShouldNot(HaveOccurred())
		})

		It("should reject ballots for unknown elections", func() {
			Ω(errors.Is(service.Vote("xerxes", 42, 1), ErrNotFound)).Should(BeTrue())
		})

		It("should reject ballots before the window opens", func() {
			clock.Advance(5 * time.Second)
			Ω(errors.Is(service.Vote("xerxes", electionID, 1), ErrNotStarted)).Should(BeTrue())
		})

		It("should accept a ballot exactly at the start time", func() {
			clock.Advance(10 * time.Second)
			Ω(service.Vote("xerxes", electionID, 1)).Should(Succeed())
		})

		It("should accept a ballot exactly at the end time", func() {
			clock.Advance(100 * time.Second)
			Ω(service.Vote("xerxes", electionID, 1)).Should(Succeed())
		})

		It("should reject ballots after the window closes", func() {
			clock.Advance(100*time.Second + time.Nanosecond)
			Ω(errors.Is(service.Vote("xerxes", electionID, 1), ErrEnded)).Should(BeTrue())
		})

		It("should reject candidate ids out of range", func() {
			clock.Advance(20 * time.Second)
			Ω(errors.Is(service.Vote("xerxes", electionID, 0), ErrInvalidCandidate)).Should(BeTrue())
			Ω(errors.Is(service.Vote("xerxes", electionID, 3), ErrInvalidCandidate)).Should(BeTrue())
		})

		It("should record at most one ballot per voter per election", func() {
			clock.Advance(20 * time.Second)

			Ω(service.Vote("xerxes", electionID, 1)).Should(Succeed())

			// A second attempt fails no matter the candidate chosen
			Ω(errors.Is(service.Vote("xerxes", electionID, 2), ErrAlreadyVoted)).Should(BeTrue())
			Ω(errors.Is(service.Vote("xerxes", electionID, 1), ErrAlreadyVoted)).Should(BeTrue())

			candidate, err := service.GetCandidate(electionID, 1)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(candidate.VoteCount).Should(Equal(uint64(1)))
		})

		It("should allow the same voter to vote in different elections", func() {
			other := createTestElection(service, clock)
			_, err := service.AddCandidate(owner, other, "Alice")
			Ω(err).ShouldNot(HaveOccurred())

			clock.Advance(20 * time.Second)
			Ω(service.Vote("xerxes", electionID, 1)).Should(Succeed())
			Ω(service.Vote("xerxes", other, 1)).Should(Succeed())
			Ω(service.GetUserTotalVotes("xerxes")).Should(Equal(2))
		})

		It("should append a history entry for every committed ballot", func() {
			clock.Advance(20 * time.Second)

			Ω(service.Vote("xerxes", electionID, 2)).Should(Succeed())

			history := service.GetUserVoteHistory("xerxes")
			Ω(history).Should(HaveLen(1))
			Ω(history[0].ElectionID).Should(Equal(electionID))
			Ω(history[0].CandidateID).Should(Equal(uint64(2)))
			Ω(history[0].Timestamp).Should(Equal(clock.Now()))
		})

		It("should conserve ballots between tallies and histories", func() {
			clock.Advance(20 * time.Second)

			voters := []string{"xerxes", "darius", "cyrus", "atossa", "cambyses"}
			for i, voter := range voters {
				Ω(service.Vote(voter, electionID, uint64(i%2)+1)).Should(Succeed())
			}

			info, err := service.GetElection(electionID)
			Ω(err).ShouldNot(HaveOccurred())

			var tally uint64
			for _, candidate := range info.Candidates {
				tally += candidate.VoteCount
			}

			var entries uint64
			for _, voter := range voters {
				for _, entry := range service.GetUserVoteHistory(voter) {
					if entry.ElectionID == electionID {
						entries++
					}
				}
			}
			Ω(tally).Should(Equal(entries))
			Ω(tally).Should(Equal(uint64(len(voters))))
		})

	})

	Describe("closing elections", func() {

		var electionID uint64

		BeforeEach(func() {
			electionID = createTestElection(service, clock)
		})

		It("should reject callers without the admin capability", func() {
			clock.Advance(150 * time.Second)
			Ω(errors.Is(service.CloseElection("brutus", electionID), ErrUnauthorized)).Should(BeTrue())
		})

		It("should reject unknown elections", func() {
			Ω(errors.Is(service.CloseElection(owner, 42), ErrNotFound)).Should(BeTrue())
		})

		It("should reject closing before the window has lapsed", func() {
			clock.Advance(50 * time.Second)
			Ω(errors.Is(service.CloseElection(owner, electionID), ErrStillActive)).Should(BeTrue())

			// Exactly at the end time is still not closeable
			clock.Set(clock.Now().Add(50 * time.Second))
			Ω(errors.Is(service.CloseElection(owner, electionID), ErrStillActive)).Should(BeTrue())
		})

		It("should close exactly once after expiry", func() {
			clock.Advance(150 * time.Second)

			Ω(service.CloseElection(owner, electionID)).Should(Succeed())
			Ω(errors.Is(service.CloseElection(owner, electionID), ErrAlreadyClosed)).Should(BeTrue())

			status, err := service.ElectionStatus(electionID)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(status).Should(Equal(Closed))
		})

		It("should refuse candidates after an explicit close", func() {
			clock.Advance(150 * time.Second)
			Ω(service.CloseElection(owner, electionID)).Should(Succeed())

			_, err := service.AddCandidate(owner, electionID, "Gaius")
			Ω(errors.Is(err, ErrElectionClosed)).Should(BeTrue())
		})

	})

	Describe("the read model", func() {

		It("should report NotFound for unknown ids on every projection", func() {
			_, err := service.GetElection(9)
			Ω(errors.Is(err, ErrNotFound)).Should(BeTrue())

			_, err = service.GetCandidate(9, 1)
			Ω(errors.Is(err, ErrNotFound)).Should(BeTrue())

			_, err = service.HasUserVoted(9, "xerxes")
			Ω(errors.Is(err, ErrNotFound)).Should(BeTrue())

			_, err = service.IsElectionActive(9)
			Ω(errors.Is(err, ErrNotFound)).Should(BeTrue())
		})

		It("should report empty history for unknown voters", func() {
			Ω(service.GetUserVoteHistory("nobody")).Should(BeEmpty())
			Ω(service.GetUserTotalVotes("nobody")).Should(BeZero())
		})

		It("should compute activity from the flag and the end time", func() {
			electionID := createTestElection(service, clock)

			// Scheduled elections report active (not closed, not expired)
			active, err := service.IsElectionActive(electionID)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(active).Should(BeTrue())

			// Expired elections report inactive even before an explicit close
			clock.Advance(150 * time.Second)
			active, err = service.IsElectionActive(electionID)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(active).Should(BeFalse())
		})

		It("should reflect ballots in HasUserVoted immediately", func() {
			electionID := createTestElection(service, clock)
			_, err := service.AddCandidate(owner, electionID, "Alice")
			Ω(err).ShouldNot(HaveOccurred())

			clock.Advance(20 * time.Second)

			voted, err := service.HasUserVoted(electionID, "xerxes")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(voted).Should(BeFalse())

			Ω(service.Vote("xerxes", electionID, 1)).Should(Succeed())

			voted, err = service.HasUserVoted(electionID, "xerxes")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(voted).Should(BeTrue())
		})

	})

	Describe("the full lifecycle scenario", func() {

		It("should run the election end to end", func() {
			electionID := createTestElection(service, clock)

			alice, err := service.AddCandidate(owner, electionID, "Alice")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(alice).Should(Equal(uint64(1)))

			bob, err := service.AddCandidate(owner, electionID, "Bob")
			Ω(err).ShouldNot(HaveOccurred())
			Ω(bob).Should(Equal(uint64(2)))

			// Voting has not started five seconds in
			clock.Advance(5 * time.Second)
			Ω(errors.Is(service.Vote("xerxes", electionID, alice), ErrNotStarted)).Should(BeTrue())

			// Voter X casts a ballot for Alice twenty seconds in
			clock.Advance(15 * time.Second)
			Ω(service.Vote("xerxes", electionID, alice)).Should(Succeed())

			candidate, err := service.GetCandidate(electionID, alice)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(candidate.VoteCount).Should(Equal(uint64(1)))

			// Voter X cannot switch to Bob
			Ω(errors.Is(service.Vote("xerxes", electionID, bob), ErrAlreadyVoted)).Should(BeTrue())

			// Voter Y casts a ballot for Alice as well
			Ω(service.Vote("yasmin", electionID, alice)).Should(Succeed())

			candidate, err = service.GetCandidate(electionID, alice)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(candidate.VoteCount).Should(Equal(uint64(2)))

			// Close the election well after expiry, then no more candidates
			clock.Advance(130 * time.Second)
			Ω(service.CloseElection(owner, electionID)).Should(Succeed())

			_, err = service.AddCandidate(owner, electionID, "Mallory")
			Ω(errors.Is(err, ErrElectionClosed)).Should(BeTrue())
		})

	})

	Describe("concurrent submission", func() {

		var electionID uint64

		BeforeEach(func() {
			electionID = createTestElection(service, clock)
			_, err := service.AddCandidate(owner, electionID, "Alice")
			Ω(err).ShouldNot(HaveOccurred())
			_, err = service.AddCandidate(owner, electionID, "Bob")
			Ω(err).ShouldNot(HaveOccurred())
			clock.Advance(20 * time.Second)
		})

		It("should commit exactly one of many simultaneous ballots from one voter", func() {
			var wg sync.WaitGroup
			results := make([]error, 32)

			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = service.Vote("xerxes", electionID, uint64(i%2)+1)
				}(i)
			}
			wg.Wait()

			var committed, duplicates int
			for _, err := range results {
				switch {
				case err == nil:
					committed++
				case errors.Is(err, ErrAlreadyVoted):
					duplicates++
				default:
					Fail("unexpected vote error: " + err.Error())
				}
			}

			Ω(committed).Should(Equal(1))
			Ω(duplicates).Should(Equal(len(results) - 1))
			Ω(service.GetUserTotalVotes("xerxes")).Should(Equal(1))
		})

		It("should commit all simultaneous ballots from distinct voters", func() {
			var wg sync.WaitGroup
			results := make([]error, 64)

			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					voter := "voter-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
					results[i] = service.Vote(voter, electionID, uint64(i%2)+1)
				}(i)
			}
			wg.Wait()

			for _, err := range results {
				Ω(err).ShouldNot(HaveOccurred())
			}

			info, err := service.GetElection(electionID)
			Ω(err).ShouldNot(HaveOccurred())

			var tally uint64
			for _, candidate := range info.Candidates {
				tally += candidate.VoteCount
			}
			Ω(tally).Should(Equal(uint64(len(results))))
		})

	})

})
