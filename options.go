package ubjson

const (
	DefaultMaxDepth = 1000
	DefaultMaxSize  = 1_000_000

	// LimitZero sets MaxDepth or MaxSize to an effective limit of 0. A zero
	// field means "use the default", so a real zero needs its own value.
	LimitZero = -1
)

type Options struct {
	// Write homogeneous non-empty arrays and objects using the strongly
	// typed container encoding ([$<kind>#<count> payloads...).
	//
	// Encode only.
	OptimizeContainers bool

	// Maximum nesting depth. Zero selects DefaultMaxDepth.
	//
	// The encoder checks it when entering a container; the decoder checks
	// it before every value, so a limit of LimitZero rejects even a lone
	// scalar when decoding.
	MaxDepth int

	// Maximum number of elements or pairs in a single container. The cap
	// applies per container, not cumulatively. Zero selects DefaultMaxSize.
	//
	// Decode only.
	MaxSize int

	// Maximum number of bytes a single Encode or Decode call may write or
	// consume. Zero means unlimited.
	MaxBytes uint64

	// Registry of named variants used by the Go binding layer (FromGo,
	// Into, Marshal, Unmarshal) to represent values stored in interface
	// typed fields as single-entry objects.
	Variants *Variants
}

type settings struct {
	optimize bool
	maxDepth int
	maxSize  int
	maxBytes uint64
	variants *Variants
}

func collectSettings(options []Options) settings {
	s := settings{
		maxDepth: DefaultMaxDepth,
		maxSize:  DefaultMaxSize,
	}

	for _, opt := range options {
		if opt.OptimizeContainers {
			s.optimize = true
		}
		if opt.MaxDepth != 0 {
			s.maxDepth = normalizeLimit(opt.MaxDepth)
		}
		if opt.MaxSize != 0 {
			s.maxSize = normalizeLimit(opt.MaxSize)
		}
		if opt.MaxBytes > 0 {
			s.maxBytes = opt.MaxBytes
		}
		if opt.Variants != nil {
			s.variants = opt.Variants
		}
	}

	return s
}

func normalizeLimit(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
