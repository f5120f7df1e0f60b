package managed

import (
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/objbridge/errors"
)

// Options is the parsed form of raw runtime option strings.
type Options struct {
	Properties    map[string]string
	Verbose       []string
	MaxHeap       int64
	InitialHeap   int64
	ThreadStack   int64
	CheckJNI      bool
	EnableAsserts bool
	Raw           []string
}

// ParseOptions parses runtime options. Unrecognized options are rejected.
func ParseOptions(raw []string) (*Options, error) {
	opts := &Options{Properties: make(map[string]string)}
	for _, o := range raw {
		opts.Raw = append(opts.Raw, o)
		switch {
		case strings.HasPrefix(o, "-D"):
			kv := o[2:]
			if kv == "" || kv[0] == '=' {
				return nil, errors.Configuration("invalid system property option "+strconv.Quote(o), nil)
			}
			k, v, _ := strings.Cut(kv, "=")
			opts.Properties[k] = v
		case strings.HasPrefix(o, "-Xmx"):
			n, err := parseSize(o[4:])
			if err != nil {
				return nil, errors.Configuration("invalid heap size "+strconv.Quote(o), err)
			}
			opts.MaxHeap = n
		case strings.HasPrefix(o, "-Xms"):
			n, err := parseSize(o[4:])
			if err != nil {
				return nil, errors.Configuration("invalid heap size "+strconv.Quote(o), err)
			}
			opts.InitialHeap = n
		case strings.HasPrefix(o, "-Xss"):
			n, err := parseSize(o[4:])
			if err != nil {
				return nil, errors.Configuration("invalid stack size "+strconv.Quote(o), err)
			}
			opts.ThreadStack = n
		case o == "-Xcheck:jni":
			opts.CheckJNI = true
		case o == "-verbose":
			opts.Verbose = append(opts.Verbose, "class")
		case strings.HasPrefix(o, "-verbose:"):
			opts.Verbose = append(opts.Verbose, strings.Split(o[len("-verbose:"):], ",")...)
		case o == "-ea" || o == "-enableassertions":
			opts.EnableAsserts = true
		case o == "-da" || o == "-disableassertions":
			opts.EnableAsserts = false
		default:
			return nil, errors.Configuration("Unrecognized option: "+o, nil)
		}
	}
	return opts, nil
}

// parseSize parses sizes such as 512k, 64m or 1g into bytes.
func parseSize(s string) (int64, error) {
	mult := int64(1)
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'k', 'K':
			mult = 1 << 10
		case 'm', 'M':
			mult = 1 << 20
		case 'g', 'G':
			mult = 1 << 30
		}
		if mult != 1 {
			s = s[:n-1]
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, strconv.ErrRange
	}
	return v * mult, nil
}

// ClassPathString joins classpath entries with the platform list separator.
func ClassPathString(entries []string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}
