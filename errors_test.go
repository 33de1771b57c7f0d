package ballot_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/ballot"
)

var _ = Describe("Errors", func() {

	It("should name every kind in the taxonomy", func() {
		kinds := map[Kind]string{
			Unauthorized:      "unauthorized",
			NotFound:          "notFound",
			InvalidInput:      "invalidInput",
			InvalidSchedule:   "invalidSchedule",
			NotStarted:        "notStarted",
			Ended:             "ended",
			AlreadyVoted:      "alreadyVoted",
			ElectionClosed:    "electionClosed",
			AlreadyClosed:     "alreadyClosed",
			StillActive:       "stillActive",
			InvalidCandidate:  "invalidCandidate",
			SelfRemovalDenied: "selfRemovalDenied",
		}

		for kind, name := range kinds {
			Ω(kind.String()).Should(Equal(name))
		}
	})

	It("should match errors by kind regardless of message", func() {
		err := Errorf(AlreadyVoted, "'%s' has already voted in election %d", "xerxes", 42)
		Ω(errors.Is(err, ErrAlreadyVoted)).Should(BeTrue())
		Ω(errors.Is(err, ErrNotFound)).Should(BeFalse())
	})

	It("should not match errors of other types", func() {
		Ω(errors.Is(fmt.Errorf("already voted"), ErrAlreadyVoted)).Should(BeFalse())
	})

	It("should format messages with their arguments", func() {
		err := Errorf(NotFound, "no election with id %d", 42)
		Ω(err.Error()).Should(Equal("no election with id 42"))
	})

	It("should fall back to the kind name without a message", func() {
		err := &Error{Kind: StillActive}
		Ω(err.Error()).Should(Equal("stillActive"))
	})

})
