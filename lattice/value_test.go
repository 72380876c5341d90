package lattice_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify/lattice"
)

var values = []lattice.CallCheckValue{
	lattice.Unknown{},
	lattice.FnPtr{},
	lattice.FnPtr{Type: 2},
	lattice.GuestTableBase{},
	lattice.PtrOffset{Check: lattice.Checked},
	lattice.PtrOffset{Check: lattice.NotChecked},
	lattice.PtrOffset{Check: lattice.DAVUnknown},
	lattice.TypedPtrOffset{Type: 2},
	lattice.CheckedVal{},
	lattice.TypeOf{Reg: 3},
}

var _ = Describe("Call check values", func() {
	Context("when joining", func() {
		It("should be idempotent", func() {
			for _, v := range values {
				Expect(lattice.Join(v, v)).Should(Equal(v))
			}
		})

		It("should be commutative", func() {
			for _, a := range values {
				for _, b := range values {
					Expect(lattice.Join(a, b)).Should(Equal(lattice.Join(b, a)))
				}
			}
		})

		It("should merge offsets with the definite check meet", func() {
			checked := lattice.PtrOffset{Check: lattice.Checked}
			unchecked := lattice.PtrOffset{Check: lattice.NotChecked}
			Expect(lattice.Join(checked, unchecked)).Should(Equal(unchecked))
			Expect(lattice.Join(lattice.Join(checked, checked), unchecked)).Should(Equal(unchecked))
		})

		It("should collapse disagreeing facts to unknown", func() {
			Expect(lattice.Join(lattice.FnPtr{}, lattice.GuestTableBase{})).Should(Equal(lattice.Unknown{}))
			Expect(lattice.Join(lattice.FnPtr{Type: 1}, lattice.FnPtr{Type: 2})).Should(Equal(lattice.Unknown{}))
			Expect(lattice.Join(lattice.PtrOffset{Check: lattice.Checked}, lattice.TypedPtrOffset{})).Should(Equal(lattice.Unknown{}))
		})

		It("should read nil as unknown", func() {
			Expect(lattice.Join(nil, nil)).Should(Equal(lattice.Unknown{}))
			Expect(lattice.Join(nil, lattice.FnPtr{})).Should(Equal(lattice.Unknown{}))
			Expect(lattice.IsUnknown(nil)).Should(BeTrue())
		})
	})

	Context("when ordering", func() {
		It("should agree with join", func() {
			for _, a := range values {
				for _, b := range values {
					Expect(lattice.Leq(a, b)).Should(Equal(lattice.Join(a, b) == b))
				}
				Expect(lattice.Leq(a, lattice.Unknown{})).Should(BeTrue())
				Expect(lattice.Leq(a, a)).Should(BeTrue())
			}
		})
	})

	Context("when printing", func() {
		It("should name the fact", func() {
			Expect(lattice.PtrOffset{Check: lattice.NotChecked}.String()).Should(Equal("PtrOffset(NotChecked)"))
			Expect(lattice.GuestTableBase{}.String()).Should(Equal("GuestTableBase"))
			Expect(lattice.TypeOf{Reg: 1}.String()).Should(Equal("TypeOf(r1)"))
		})
	})
})
