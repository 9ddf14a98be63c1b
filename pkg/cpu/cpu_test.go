package cpu

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kyberias/HRMC/pkg/asm"
)

const echoProgram = `
a:
    INBOX
    OUTBOX
    JUMP a
`

const signProgram = `
a:
    INBOX
    JUMPN n
    JUMPZ z
    COPYFROM 1
    OUTBOX
    JUMP a
n:
    COPYFROM 2
    OUTBOX
    JUMP a
z:
    COPYFROM 0
    OUTBOX
    JUMP a
`

func mustNew(listing string, opts ...Option) *CPU {
	c, err := New(asm.MustParse(listing), opts...)
	Expect(err).NotTo(HaveOccurred())
	return c
}

var _ = Describe("CPU", func() {
	var (
		mockCtrl  *gomock.Controller
		mockInbox *MockInbox
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockInbox = NewMockInbox(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("Program loading", func() {
		It("should reject a jump to a missing label", func() {
			_, err := New(asm.MustParse("JUMP nowhere"))
			Expect(err).To(MatchError(ErrUndefinedLabel))
		})

		It("should reject a label defined twice", func() {
			_, err := New(asm.MustParse("a:\nINBOX\na:\nOUTBOX"))
			Expect(err).To(MatchError(ErrDuplicateLabel))
		})

		It("should default to a zeroed memory of DefaultMemorySize cells", func() {
			c := mustNew("")
			Expect(c.Memory()).To(Equal(make([]int, DefaultMemorySize)))
		})

		It("should grow memory to fit a larger image", func() {
			image := make([]int, 150)
			image[149] = 7
			c := mustNew("", WithMemory(image))
			Expect(c.Memory()).To(HaveLen(150))
			Expect(c.Memory()[149]).To(Equal(7))
		})

		It("should size memory before presetting it", func() {
			c := mustNew("", WithMemorySize(4), WithMemory([]int{1, 2}))
			Expect(c.Memory()).To(Equal([]int{1, 2, 0, 0}))
		})
	})

	Context("Input and output", func() {
		It("should echo every input and halt when the inbox is empty", func() {
			out, err := Run(asm.MustParse(echoProgram), []int{1, 2, 3}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]int{1, 2, 3}))
		})

		It("should halt on an exhausted inbox without an error", func() {
			mockInbox.EXPECT().Next().Return(0, false)
			c := mustNew(echoProgram, WithInbox(mockInbox))

			out, err := c.RunContext(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
			Expect(c.Halted()).To(BeTrue())
		})

		It("should only read input when INBOX executes", func() {
			mockInbox.EXPECT().Next().Return(7, true).Times(1)
			c := mustNew(echoProgram, WithInbox(mockInbox))

			var got []int
			for v, err := range c.Outputs(context.Background()) {
				Expect(err).NotTo(HaveOccurred())
				got = append(got, v)
				break
			}
			Expect(got).To(Equal([]int{7}))
			Expect(c.Halted()).To(BeFalse())
			Expect(c.PC()).To(Equal(3))
		})

		It("should empty the accumulator on OUTBOX", func() {
			c := mustNew("INBOX\nOUTBOX", WithInbox(SliceInbox([]int{4})))
			_, err := c.RunContext(context.Background())
			Expect(err).NotTo(HaveOccurred())
			_, ok := c.Accumulator()
			Expect(ok).To(BeFalse())
		})

		It("should halt when running off the end", func() {
			c := mustNew("INBOX", WithInbox(SliceInbox([]int{1, 2})))
			_, err := c.RunContext(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Halted()).To(BeTrue())
			Expect(c.Steps()).To(Equal(1))
		})
	})

	Context("Arithmetic", func() {
		It("should add and subtract memory from the accumulator", func() {
			prog := asm.MustParse(`
    INBOX
    COPYTO 0
    INBOX
    SUB 0
    OUTBOX
    INBOX
    ADD 0
    OUTBOX
`)
			out, err := Run(prog, []int{3, 10, 4}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]int{7, 7}))
		})

		It("should bump memory and load the result", func() {
			c := mustNew(`
    BUMPUP 0
    OUTBOX
    BUMPDN 0
    BUMPDN 0
    OUTBOX
`, WithMemory([]int{5}))
			out, err := c.RunContext(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]int{6, 4}))
			Expect(c.Memory()[0]).To(Equal(4))
		})

		It("should follow one level of indirection", func() {
			c := mustNew(`
    COPYFROM [0]
    OUTBOX
    INBOX
    COPYTO [1]
    BUMPUP [1]
    SUB [0]
    OUTBOX
`, WithMemory([]int{3, 4, 0, 42, 0}), WithInbox(SliceInbox([]int{9})))
			out, err := c.RunContext(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]int{42, -32}))
			Expect(c.Memory()[4]).To(Equal(10))
		})
	})

	Context("Jumps", func() {
		It("should branch on zero and negative", func() {
			out, err := Run(asm.MustParse(signProgram), []int{5, -3, 0}, []int{0, 1, -1})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]int{1, -1, 0}))
		})
	})

	Context("Faults", func() {
		It("should fault on OUTBOX with an empty accumulator and change nothing", func() {
			c := mustNew("OUTBOX")
			_, _, err := c.Step()

			var fault *Fault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.PC).To(Equal(0))
			Expect(fault.Instruction).To(Equal(asm.Plain(asm.Outbox)))
			Expect(err).To(MatchError(ErrEmptyAccumulator))
			Expect(c.PC()).To(Equal(0))
			Expect(c.Steps()).To(Equal(0))
		})

		It("should start with an empty accumulator", func() {
			c := mustNew("OUTBOX")
			_, ok := c.Accumulator()
			Expect(ok).To(BeFalse())
		})

		It("should fault on a conditional jump with an empty accumulator", func() {
			c := mustNew("a:\nJUMPZ a")
			_, err := c.RunContext(context.Background())
			Expect(err).To(MatchError(ErrEmptyAccumulator))
		})

		It("should fault on a direct address outside memory", func() {
			c := mustNew("COPYFROM 12", WithMemorySize(10))
			_, err := c.RunContext(context.Background())
			Expect(err).To(MatchError(ErrMemoryOutOfRange))
		})

		It("should fault on an indirect address outside memory", func() {
			c := mustNew("BUMPUP [0]", WithMemory([]int{-1}))
			_, _, err := c.Step()
			Expect(err).To(MatchError(ErrMemoryOutOfRange))
			Expect(c.Memory()[0]).To(Equal(-1))
		})

		It("should stop at the step limit", func() {
			c := mustNew("a:\nJUMP a", WithStepLimit(10))
			_, err := c.RunContext(context.Background())
			Expect(err).To(MatchError(ErrStepLimit))
			Expect(c.Steps()).To(Equal(10))
		})

		It("should stop when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			c := mustNew("a:\nJUMP a")
			_, err := c.RunContext(ctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Context("Debug", func() {
		It("should log the operand and keep going", func() {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			c := mustNew("INBOX\nDEBUG -5\nOUTBOX",
				WithLogger(logger), WithInbox(SliceInbox([]int{8})))

			out, err := c.RunContext(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]int{8}))
			Expect(buf.String()).To(ContainSubstring(`"value":-5`))
			Expect(buf.String()).To(ContainSubstring(`"acc":8`))
		})
	})

	It("should return a copy of memory", func() {
		c := mustNew("", WithMemory([]int{1}))
		c.Memory()[0] = 99
		Expect(c.Memory()[0]).To(Equal(1))
	})
})
