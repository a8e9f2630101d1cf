package pdf

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// LanguageChecker returns a warning when text does not look like English
type LanguageChecker interface {
	Check(text string) string
}

// sampleChars bounds how much text is handed to the detector
const sampleChars = 4000

// LinguaChecker tells English from French. The detector is built on first use.
type LinguaChecker struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// NewLinguaChecker creates a LinguaChecker
func NewLinguaChecker() *LinguaChecker {
	return &LinguaChecker{}
}

func (c *LinguaChecker) Check(text string) string {
	c.once.Do(func() {
		c.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.French).
			Build()
	})

	sample := text
	if len(sample) > sampleChars {
		cut := sampleChars
		for cut > 0 && !utf8.RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut]
	}

	lang, ok := c.detector.DetectLanguageOf(sample)
	if !ok || lang == lingua.English {
		return ""
	}
	return fmt.Sprintf("extracted text looks %s rather than English; column selection may have picked the wrong column", lang)
}
