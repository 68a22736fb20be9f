package report_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/report"
)

var _ = Describe("Classifier", func() {
	var classifier *report.Classifier

	BeforeEach(func() {
		classifier = report.NewClassifier(report.DefaultVocabulary())
	})

	Describe("Classify", func() {
		It("partitions new issues into mutually exclusive buckets", func() {
			excluded := defect("1", "major", "open")
			excluded.CauseOfDetect = []string{"exploratory", "test-error"}
			kept := defect("2", "major", "open")
			kept.CauseOfDetect = []string{"exploratory"}
			improvement := issue("3", "improvement", "open")
			feature := issue("4", "new-feature", "closed")
			task := issue("5", "task", "open")

			b := classifier.Classify([]model.IssueRecord{excluded, kept, improvement, feature, task}, nil)

			Expect(keys(b.Defects)).To(Equal([]string{"QA-2"}))
			Expect(keys(b.ExcludedDefects)).To(Equal([]string{"QA-1"}))
			Expect(keys(b.Improvements)).To(Equal([]string{"QA-3", "QA-4"}))
			Expect(b.Checklist).NotTo(BeNil())
			Expect(b.Checklist).To(BeEmpty())
		})

		It("never excludes a defect without cause tags", func() {
			b := classifier.Classify([]model.IssueRecord{defect("1", "minor", "open")}, nil)

			Expect(b.Defects).To(HaveLen(1))
			Expect(b.ExcludedDefects).To(BeEmpty())
		})

		It("orders defects by priority, then open before fixed", func() {
			normal := issue("1", "defect", "open")
			normal.Priority = "normal"
			critical := issue("2", "defect", "closed")
			critical.Priority = "critical"
			critical.ReopenVersions = []string{"1.2"}

			b := classifier.Classify([]model.IssueRecord{normal, critical}, nil)

			Expect(keys(b.Defects)).To(Equal([]string{"QA-2", "QA-1"}))
		})

		It("keeps the relative order within a priority and status group", func() {
			b := classifier.Classify([]model.IssueRecord{
				defect("1", "major", "open"),
				defect("2", "major", "closed"),
				defect("3", "major", "in progress"),
				defect("4", "minor", "open"),
				defect("5", "unlisted", "open"),
				defect("6", "critical", "resolved"),
				defect("7", "major", "resolved"),
			}, nil)

			Expect(keys(b.Defects)).To(Equal([]string{"QA-6", "QA-1", "QA-3", "QA-2", "QA-7", "QA-4", "QA-5"}))
		})

		It("prefers the defect priority over the generic priority", func() {
			first := defect("1", "minor", "open")
			first.Priority = "critical"
			second := defect("2", "blocker", "open")
			second.Priority = "minor"

			b := classifier.Classify([]model.IssueRecord{first, second}, nil)

			Expect(keys(b.Defects)).To(Equal([]string{"QA-2", "QA-1"}))
		})

		It("strips type markers from checklist issues only", func() {
			marked := issue("9", "(subtask) defect", "open")
			newIssue := issue("10", "(subtask) defect", "open")

			b := classifier.Classify([]model.IssueRecord{newIssue}, []model.IssueRecord{marked})

			Expect(b.Checklist).To(HaveLen(1))
			Expect(b.Checklist[0].IssueType).To(Equal("defect"))
			Expect(b.Defects).To(BeEmpty())
		})

		It("does not modify its input", func() {
			input := []model.IssueRecord{defect("1", "minor", "open"), defect("2", "critical", "open")}

			classifier.Classify(input, nil)

			Expect(keys(input)).To(Equal([]string{"QA-1", "QA-2"}))
		})
	})

	DescribeTable("StripTypeMarker",
		func(in, want string) {
			Expect(report.StripTypeMarker(in)).To(Equal(want))
		},
		Entry("leading marker", "(subtask) defect", "defect"),
		Entry("surrounding blanks", "  (sub)  task", "task"),
		Entry("no marker", "defect", "defect"),
		Entry("trailing parenthetical", "defect (legacy)", "defect (legacy)"),
		Entry("localized marker", "(부작업) 결함", "결함"),
	)
})
