package tokens

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is used for any model the registry does not know.
const DefaultEncoding = "cl100k_base"

// EstimatorEncoding names the last-resort encoder used when no BPE table
// can be loaded at all.
const EstimatorEncoding = "chars"

// Encoder turns text into tokens.
type Encoder interface {
	Encode(text string) []int
}

// modelEncodings maps model-name prefixes to encodings. The longest matching
// prefix wins.
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4.1":                "o200k_base",
	"gpt-4.5":                "o200k_base",
	"o1":                     "o200k_base",
	"o3":                     "o200k_base",
	"o4":                     "o200k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"gpt-35-turbo":           "cl100k_base",
	"text-embedding-3":       "cl100k_base",
	"text-embedding-ada-002": "cl100k_base",
	"text-davinci-003":       "p50k_base",
	"text-davinci-002":       "p50k_base",
	"code-davinci":           "p50k_base",
	"davinci":                "r50k_base",
}

var (
	mu       sync.Mutex
	encoders = map[string]Encoder{}
	prefixes []string
)

func init() {
	tiktoken.SetBpeLoader(chainLoader{
		tiktoken_loader.NewOfflineLoader(),
		tiktoken.NewDefaultBpeLoader(),
	})
	rebuildPrefixes()
}

// chainLoader tries each BPE loader in turn. The embedded offline ranks are
// tried first; the default loader downloads into TIKTOKEN_CACHE_DIR only for
// encodings the offline set does not carry.
type chainLoader []tiktoken.BpeLoader

func (c chainLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	var errs []error
	for _, l := range c {
		ranks, err := l.LoadTiktokenBpe(file)
		if err == nil {
			return ranks, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("load %s: %w", path.Base(file), errors.Join(errs...))
}

func rebuildPrefixes() {
	prefixes = prefixes[:0]
	for p := range modelEncodings {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
}

// Register installs an encoder under an encoding name, replacing any
// previously loaded encoder of that name.
func Register(encoding string, enc Encoder) {
	mu.Lock()
	defer mu.Unlock()
	encoders[encoding] = enc
}

// RegisterModel maps a model-name prefix to an encoding.
func RegisterModel(prefix, encoding string) {
	mu.Lock()
	defer mu.Unlock()
	modelEncodings[strings.ToLower(prefix)] = encoding
	rebuildPrefixes()
}

// EncodingForModel returns the encoding registered for a model, or
// DefaultEncoding when the model is unknown.
func EncodingForModel(model string) string {
	mu.Lock()
	defer mu.Unlock()
	m := strings.ToLower(strings.TrimSpace(model))
	for _, p := range prefixes {
		if strings.HasPrefix(m, p) {
			return modelEncodings[p]
		}
	}
	return DefaultEncoding
}

// Resolve returns a usable encoder for the model and the name of the
// encoding actually used. It never fails: an unavailable encoding falls back
// to DefaultEncoding and then to a character estimator.
func Resolve(model string) (Encoder, string) {
	name := EncodingForModel(model)
	if enc, ok := load(name); ok {
		return enc, name
	}
	if name != DefaultEncoding {
		if enc, ok := load(DefaultEncoding); ok {
			return enc, DefaultEncoding
		}
	}
	return CharEstimator{}, EstimatorEncoding
}

func load(name string) (Encoder, bool) {
	mu.Lock()
	defer mu.Unlock()

	if enc, ok := encoders[name]; ok {
		return enc, true
	}
	tk, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, false
	}
	enc := bpeEncoder{tk: tk}
	encoders[name] = enc
	return enc, true
}

type bpeEncoder struct {
	tk *tiktoken.Tiktoken
}

// Special-token text is encoded as ordinary text.
func (e bpeEncoder) Encode(text string) []int {
	return e.tk.Encode(text, nil, nil)
}

// CharEstimator approximates tokens as ceil(len/CharsPerToken).
type CharEstimator struct {
	CharsPerToken int // defaults to 4 if zero
}

func (e CharEstimator) Encode(text string) []int {
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = 4
	}
	if len(text) == 0 {
		return nil
	}
	return make([]int, (len(text)+ratio-1)/ratio)
}
