package id_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/qareport/common/id"
)

var _ = Describe("id", func() {
	BeforeEach(func() {
		Expect(id.Init(3)).To(Succeed())
	})

	It("generates increasing ids that survive a string round trip", func() {
		first, second := id.New(), id.New()

		Expect(second).To(BeNumerically(">", first))

		parsed, err := id.Parse(id.String(first))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(first))
	})

	DescribeTable("rejects malformed ids",
		func(in string) {
			_, err := id.Parse(in)
			Expect(err).To(HaveOccurred())
		},
		Entry("letters", "abc"),
		Entry("empty", ""),
		Entry("zero", "0"),
		Entry("negative", "-5"),
	)
})
