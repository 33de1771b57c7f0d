package ballot_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/ballot"
)

var _ = Describe("AdminSet", func() {

	var admins *AdminSet

	BeforeEach(func() {
		admins = NewAdminSet(owner)
	})

	It("should make the owner an admin at initialization", func() {
		Ω(admins.Owner()).Should(Equal(owner))
		Ω(admins.IsAdmin(owner)).Should(BeTrue())
		Ω(admins.Count()).Should(Equal(1))
	})

	It("should not treat unknown identities as admins", func() {
		Ω(admins.IsAdmin("brutus")).Should(BeFalse())
		Ω(admins.IsAdmin("")).Should(BeFalse())
	})

	It("should allow the owner to grant and revoke the capability", func() {
		Ω(admins.Add(owner, "livia")).Should(Succeed())
		Ω(admins.IsAdmin("livia")).Should(BeTrue())

		Ω(admins.Remove(owner, "livia")).Should(Succeed())
		Ω(admins.IsAdmin("livia")).Should(BeFalse())
	})

	It("should refuse grants and revocations from non-owners", func() {
		Ω(admins.Add(owner, "livia")).Should(Succeed())

		// Even another admin may not change the set
		Ω(errors.Is(admins.Add("livia", "brutus"), ErrUnauthorized)).Should(BeTrue())
		Ω(errors.Is(admins.Remove("livia", owner), ErrUnauthorized)).Should(BeTrue())
	})

	It("should refuse to grant the capability to an empty identity", func() {
		Ω(errors.Is(admins.Add(owner, ""), ErrInvalidInput)).Should(BeTrue())
	})

	It("should never let the owner remove itself", func() {
		err := admins.Remove(owner, owner)
		Ω(errors.Is(err, ErrSelfRemovalDenied)).Should(BeTrue())
		Ω(admins.IsAdmin(owner)).Should(BeTrue())
	})

	It("should authorize granted admins for election management", func() {
		service, clock := newTestService()
		Ω(service.AddAdmin(owner, "livia")).Should(Succeed())

		_, err := service.CreateElection(
			"livia", "Consul of Rome", "Senate", "Annual consular election",
			clock.Now().Add(10*time.Second), clock.Now().Add(100*time.Second),
		)
		Ω(err).ShouldNot(HaveOccurred())

		// Revocation takes effect immediately
		Ω(service.RemoveAdmin(owner, "livia")).Should(Succeed())
		_, err = service.CreateElection(
			"livia", "Censor of Rome", "Senate", "Quinquennial census election",
			clock.Now().Add(10*time.Second), clock.Now().Add(100*time.Second),
		)
		Ω(errors.Is(err, ErrUnauthorized)).Should(BeTrue())
	})

})
