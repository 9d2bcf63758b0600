package extraction

import (
	"bytes"
	"image"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func pngBytes(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).NotTo(HaveOccurred())
	return buf.Bytes()
}

var _ = Describe("IsHEICData", func() {
	It("should detect the heic ftyp box", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		Expect(IsHEICData(data)).To(BeTrue())
	})

	It("should detect the mif1 brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypmif1")...)
		Expect(IsHEICData(data)).To(BeTrue())
	})

	It("should reject other containers", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypisom")...)
		Expect(IsHEICData(data)).To(BeFalse())
	})

	It("should reject short data", func() {
		Expect(IsHEICData([]byte("tiny"))).To(BeFalse())
	})

	It("should reject PNG data", func() {
		Expect(IsHEICData(pngBytes(2, 2))).To(BeFalse())
	})
})

var _ = Describe("IsHEICMimeType", func() {
	It("should match image/heic", func() {
		Expect(IsHEICMimeType("image/heic")).To(BeTrue())
	})

	It("should match image/heif regardless of case", func() {
		Expect(IsHEICMimeType("IMAGE/HEIF")).To(BeTrue())
	})

	It("should reject image/jpeg", func() {
		Expect(IsHEICMimeType("image/jpeg")).To(BeFalse())
	})
})

var _ = Describe("NormalizeUpload", func() {
	When("the upload is not HEIC", func() {
		It("should pass the data through untouched", func() {
			original := pngBytes(2, 2)
			data, contentType, err := NormalizeUpload(original, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(original))
			Expect(contentType).To(Equal("image/png"))
		})
	})

	When("the declared type is HEIC but the data is not", func() {
		It("returns the error", func() {
			_, _, err := NormalizeUpload([]byte("not heic"), "image/heic")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("prepareImageData", func() {
	When("the payload is already PNG", func() {
		It("should return it unchanged", func() {
			original := pngBytes(2, 2)
			data, err := prepareImageData(original, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(original))
		})
	})

	When("the payload is undecodable", func() {
		It("returns the error", func() {
			_, err := prepareImageData([]byte("garbage"), "image/jpeg")
			Expect(err).To(HaveOccurred())
		})
	})
})
