package kernel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSource(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source failed: %v", err)
	}

	for _, want := range []string{
		"var<push_constant>",
		"@workgroup_size(64, 1, 1)",
		"@group(0) @binding(0)",
		"fn main(",
		"enabled: u32",
		"pc.enabled != 0u",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("kernel source missing %q", want)
		}
	}
}

func TestBytesToBytecode(t *testing.T) {
	b := []byte{
		0x03, 0x02, 0x23, 0x07,
		0x00, 0x03, 0x01, 0x00,
	}

	code, err := BytesToBytecode(b)
	if err != nil {
		t.Fatalf("BytesToBytecode failed: %v", err)
	}
	if len(code) != 2 {
		t.Fatalf("Expected 2 words, got %d", len(code))
	}
	if code[0] != SPIRVMagic {
		t.Errorf("Expected magic word, got 0x%08x", code[0])
	}
	if code[1] != 0x00010300 {
		t.Errorf("Expected version word 0x00010300, got 0x%08x", code[1])
	}
}

func TestBytesToBytecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"unaligned", []byte{0x03, 0x02, 0x23}},
		{"bad magic", []byte{0xde, 0xad, 0xbe, 0xef}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BytesToBytecode(tt.b); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadSPIRV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.spv")
	if err := os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}, 0644); err != nil {
		t.Fatalf("writing spv: %v", err)
	}

	code, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(code) != 2 || code[0] != SPIRVMagic {
		t.Errorf("Unexpected code: %x", code)
	}

	if _, err := LoadSPIRV(filepath.Join(t.TempDir(), "missing.spv")); err == nil {
		t.Error("Expected error for missing file")
	}
}

const (
	opEntryPoint            = 15
	executionModelGLCompute = 5
	spirvHeaderWords        = 5
)

// entryPoints maps every OpEntryPoint name in code to its execution model.
func entryPoints(t *testing.T, code []uint32) map[string]uint32 {
	t.Helper()

	found := map[string]uint32{}
	for i := spirvHeaderWords; i < len(code); {
		wordCount := int(code[i] >> 16)
		if wordCount == 0 || i+wordCount > len(code) {
			t.Fatalf("Malformed instruction at word %d", i)
		}

		if code[i]&0xFFFF == opEntryPoint && wordCount >= 4 {
			var name []byte
		words:
			for _, w := range code[i+3 : i+wordCount] {
				for shift := 0; shift < 32; shift += 8 {
					c := byte(w >> shift)
					if c == 0 {
						break words
					}
					name = append(name, c)
				}
			}
			found[string(name)] = code[i+1]
		}
		i += wordCount
	}
	return found
}

func TestCompile(t *testing.T) {
	code, err := Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if code[0] != SPIRVMagic {
		t.Errorf("Expected SPIR-V magic, got 0x%08x", code[0])
	}

	model, ok := entryPoints(t, code)[EntryPoint]
	if !ok {
		t.Fatalf("Expected an OpEntryPoint named %q", EntryPoint)
	}
	if model != executionModelGLCompute {
		t.Errorf("Expected GLCompute execution model, got %d", model)
	}
}

func TestGroupCount(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{65536, 64, 1024},
		{65537, 64, 1025},
		{1, 64, 1},
		{64, 64, 1},
		{0, 64, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := GroupCount(tt.n, tt.size); got != tt.want {
			t.Errorf("GroupCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}
