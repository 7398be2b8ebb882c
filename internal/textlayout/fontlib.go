/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// EnvLabelFont names a TTF/OTF file used for plan labels instead of the
// built-in bitmap font.
const EnvLabelFont = "FP_LABEL_FONT"

// FontLibrary holds parsed OpenType fonts by family name.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[string]*opentype.Font
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[string]*opentype.Font)} }

// LoadTTF parses the font file at path and registers it as family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	fl.fonts[family] = f
	return nil
}

// Len is the number of registered families.
func (fl *FontLibrary) Len() int {
	if fl == nil {
		return 0
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return len(fl.fonts)
}

func (fl *FontLibrary) find(family string) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if f, ok := fl.fonts[family]; ok {
		return f
	}
	// Any registered font beats the bitmap fallback.
	for _, f := range fl.fonts {
		return f
	}
	return nil
}

// OTProvider resolves faces from a FontLibrary and falls back to another
// Provider when the library has nothing usable.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 when zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec.Family); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

// ProviderFromEnv returns an OTProvider over the font named by
// FP_LABEL_FONT, or BasicProvider when it is unset or unreadable.
func ProviderFromEnv() (Provider, error) {
	path := strings.TrimSpace(os.Getenv(EnvLabelFont))
	if path == "" {
		return BasicProvider{}, nil
	}
	lib := NewFontLibrary()
	if err := lib.LoadTTF("label", path); err != nil {
		return BasicProvider{}, err
	}
	return OTProvider{Lib: lib}, nil
}
