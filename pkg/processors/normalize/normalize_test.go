package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/processors/tokenizer"
	"github.com/wehubfusion/textprep/pkg/step"
)

type constructor func(config.StepConfig, step.Deps) (step.Transformer, error)

func newStep(t *testing.T, create constructor, stepType string, options map[string]interface{}) step.Transformer {
	t.Helper()
	tok, err := tokenizer.NewRegex(config.TokenizerConfig{Type: config.TokenizerRegex}, step.Deps{})
	require.NoError(t, err)
	s, err := create(config.StepConfig{
		Name:     config.SectionSteps,
		Type:     stepType,
		LogLevel: "debug",
		Options:  options,
	}, step.Deps{Tokenizer: tok})
	require.NoError(t, err)
	return s
}

func run(t *testing.T, create constructor, stepType string, options map[string]interface{}, data interface{}) *item.Item {
	t.Helper()
	s := newStep(t, create, stepType, options)
	return s.Process(&item.Item{ID: "1", Data: data, Tags: map[string]interface{}{}})
}

func TestTextSteps(t *testing.T) {
	tests := []struct {
		name     string
		create   constructor
		stepType string
		options  map[string]interface{}
		input    interface{}
		want     interface{}
	}{
		{"lowercase", NewLowercase, config.StepLowercase, nil, "This IS A Test", "this is a test"},
		{"lowercase unicode", NewLowercase, config.StepLowercase, nil, "ÀÉÎ ÑANDÚ", "àéî ñandú"},
		{"lowercase tokens", NewLowercase, config.StepLowercase, nil, []string{"A", "B"}, []string{"a", "b"}},
		{"remove digits", NewRemoveDigits, config.StepRemoveDigits, nil, "room 101, floor 3", "room , floor "},
		{"remove punctuation", NewRemovePunctuation, config.StepRemovePunctuation, nil, "hello, world! (it's) ¿ok?", "hello world its ¿ok"},
		{"remove punctuation drops emptied tokens", NewRemovePunctuation, config.StepRemovePunctuation, nil, []string{"hi", "!", "there"}, []string{"hi", "there"}},
		{"remove whitespace", NewRemoveWhitespace, config.StepRemoveWhitespace, nil, "  too   many \t spaces \n", "too many spaces"},
		{"remove accents", NewRemoveAccents, config.StepRemoveAccents, nil, "café naïve façade", "cafe naive facade"},
		{"expand contractions", NewExpandContractions, config.StepExpandContractions, nil, "this isn't a test sentence!", "this is not a test sentence!"},
		{"expand contractions keeps punctuation", NewExpandContractions, config.StepExpandContractions, nil, "\"you're late,\" they said. we'll see", "\"you are late,\" they said. we will see"},
		{"expand curly apostrophe", NewExpandContractions, config.StepExpandContractions, nil, "don’t", "do not"},
		{"expand tokens", NewExpandContractions, config.StepExpandContractions, nil, []string{"can't", "stop"}, []string{"cannot", "stop"}},
		{"remove html", NewRemoveHTML, config.StepRemoveHTML, nil, "<div>remove html</div>", "remove html"},
		{"remove html entities and scripts", NewRemoveHTML, config.StepRemoveHTML, nil, "<p>fish &amp; chips</p><script>alert(1)</script><style>p{}</style> ", "fish & chips"},
		{"remove html plain text", NewRemoveHTML, config.StepRemoveHTML, nil, "no markup here", "no markup here"},
		{"remove urls", NewRemoveURLs, config.StepRemoveURLs, nil, "see https://example.com/path?q=1 now", "see  now"},
		{"stopwords short list", NewRemoveStopwords, config.StepRemoveStopwords, nil, "this is a pipeline for the text", "pipeline text"},
		{"stopwords long list", NewRemoveStopwords, config.StepRemoveStopwords, map[string]interface{}{"list": "long_list"}, "i am going to the mall", "going mall"},
		{"stopwords custom", NewRemoveStopwords, config.StepRemoveStopwords, map[string]interface{}{"list": "custom", "words": []interface{}{"mall"}}, "i am going to the mall", "i am going to the"},
		{"stopwords tokens", NewRemoveStopwords, config.StepRemoveStopwords, nil, []string{"the", "cat"}, []string{"cat"}},
		{"porter stemmer", NewPorterStemmer, config.StepPorterStemmer, nil, "visiting running cities", "visit run citi"},
		{"porter stemmer skips punctuation", NewPorterStemmer, config.StepPorterStemmer, nil, []string{"jumping", "!"}, []string{"jump", "!"}},
		{"snowball spanish", NewSnowballStemmer, config.StepSnowballStemmer, map[string]interface{}{"language": "spanish"}, "corriendo", "corr"},
		{"lemmatizer", NewLemmatizer, config.StepLemmatizer, nil, "cities boxes wolves cats glass news", "city box wolf cat glass news"},
		{"lemmatizer irregular", NewLemmatizer, config.StepLemmatizer, nil, []string{"children", "geese"}, []string{"child", "goose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, tt.create, tt.stepType, tt.options, tt.input)
			assert.Equal(t, tt.want, got.Data)
			assert.Equal(t, "1", got.ID)
		})
	}
}

func TestLowercaseIdempotent(t *testing.T) {
	s := newStep(t, NewLowercase, config.StepLowercase, nil)
	inputs := []string{"MiXeD CaSe", "ÉCOLE", "already lower", "İstanbul"}
	for _, in := range inputs {
		once := s.Process(&item.Item{ID: "x", Data: in})
		onceData := once.Data
		twice := s.Process(once)
		assert.Equal(t, onceData, twice.Data, "input %q", in)
	}
}

func TestRemoveURLsSavesTags(t *testing.T) {
	got := run(t, NewRemoveURLs, config.StepRemoveURLs, map[string]interface{}{"save_urls": "yes"},
		"visit www.example.com or http://golang.org/doc today")

	assert.Equal(t, []string{"www.example.com", "http://golang.org/doc"}, got.Tags["urls"])
	assert.NotContains(t, got.Data, "example.com")
	assert.NotContains(t, got.Data, "golang.org")

	got = run(t, NewRemoveURLs, config.StepRemoveURLs, map[string]interface{}{"save_urls": true}, "nothing to see")
	assert.Equal(t, []string{}, got.Tags["urls"])

	got = run(t, NewRemoveURLs, config.StepRemoveURLs, nil, "drop example.org")
	assert.NotContains(t, got.Tags, "urls")
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name     string
		create   constructor
		stepType string
		options  map[string]interface{}
	}{
		{"stopwords unknown list", NewRemoveStopwords, config.StepRemoveStopwords, map[string]interface{}{"list": "tiny"}},
		{"stopwords custom without words", NewRemoveStopwords, config.StepRemoveStopwords, map[string]interface{}{"list": "custom"}},
		{"stopwords custom bad words", NewRemoveStopwords, config.StepRemoveStopwords, map[string]interface{}{"list": "custom", "words": "the"}},
		{"snowball unsupported language", NewSnowballStemmer, config.StepSnowballStemmer, map[string]interface{}{"language": "klingon"}},
		{"urls bad save flag", NewRemoveURLs, config.StepRemoveURLs, map[string]interface{}{"save_urls": "maybe"}},
		{"custom without script", NewCustomNormalize, config.StepCustomNormalize, nil},
		{"custom without process", NewCustomNormalize, config.StepCustomNormalize, map[string]interface{}{"script": "var x = 1;"}},
		{"custom syntax error", NewCustomNormalize, config.StepCustomNormalize, map[string]interface{}{"script": "function process(item) {"}},
		{"custom bad timeout", NewCustomNormalize, config.StepCustomNormalize, map[string]interface{}{"script": "function process(i) { return i.data; }", "timeout_ms": -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.create(config.StepConfig{Name: config.SectionSteps, Type: tt.stepType, Options: tt.options}, step.Deps{})
			require.Error(t, err)
			assert.ErrorIs(t, err, step.ErrInvalidStepConfig)
			assert.ErrorIs(t, err, config.ErrConfig)
		})
	}
}

func TestSnowballDefaults(t *testing.T) {
	s := newStep(t, NewSnowballStemmer, config.StepSnowballStemmer, nil)
	assert.Equal(t, "english", s.(*Stemmer).Language())

	s = newStep(t, NewSnowballStemmer, config.StepSnowballStemmer, map[string]interface{}{"language": "porter"})
	assert.Equal(t, "english", s.(*Stemmer).Language())
}

func TestCustomNormalize(t *testing.T) {
	t.Run("returns string", func(t *testing.T) {
		got := run(t, NewCustomNormalize, config.StepCustomNormalize,
			map[string]interface{}{"script": `function process(item) { return item.data.split("").reverse().join(""); }`},
			"abc")
		assert.Equal(t, "cba", got.Data)
	})

	t.Run("returns object with tags", func(t *testing.T) {
		got := run(t, NewCustomNormalize, config.StepCustomNormalize,
			map[string]interface{}{"script": `
				function process(item) {
					return {data: item.data.toUpperCase(), tags: {length: item.data.length}};
				}`},
			"abc")
		assert.Equal(t, "ABC", got.Data)
		assert.EqualValues(t, 3, got.Tags["length"])
	})

	t.Run("returns tokens", func(t *testing.T) {
		got := run(t, NewCustomNormalize, config.StepCustomNormalize,
			map[string]interface{}{"script": `function process(item) { return item.data.split(" "); }`},
			"a b")
		assert.Equal(t, []string{"a", "b"}, got.Data)
	})

	t.Run("throwing script leaves item unchanged", func(t *testing.T) {
		got := run(t, NewCustomNormalize, config.StepCustomNormalize,
			map[string]interface{}{"script": `function process(item) { throw new Error("bad input"); }`},
			"keep me")
		assert.Equal(t, "keep me", got.Data)
	})

	t.Run("timeout leaves item unchanged and runtime reusable", func(t *testing.T) {
		s := newStep(t, NewCustomNormalize, config.StepCustomNormalize, map[string]interface{}{
			"script": `function process(item) {
				if (item.data === "spin") { while (true) {} }
				return item.data + "!";
			}`,
			"timeout_ms": 50,
		})
		got := s.Process(&item.Item{ID: "1", Data: "spin"})
		assert.Equal(t, "spin", got.Data)

		got = s.Process(&item.Item{ID: "2", Data: "ok"})
		assert.Equal(t, "ok!", got.Data)
	})

	t.Run("late timer does not interrupt the next call", func(t *testing.T) {
		s := newStep(t, NewCustomNormalize, config.StepCustomNormalize, map[string]interface{}{
			"script": `function process(item) { return item.data + "!"; }`,
		}).(*CustomNormalize)
		var fired []func()
		s.afterFunc = func(_ time.Duration, f func()) *time.Timer {
			fired = append(fired, f)
			return time.AfterFunc(time.Hour, func() {})
		}

		got := s.Process(&item.Item{ID: "1", Data: "a"})
		assert.Equal(t, "a!", got.Data)
		require.Len(t, fired, 1)
		fired[0]()

		got = s.Process(&item.Item{ID: "2", Data: "b"})
		assert.Equal(t, "b!", got.Data)
	})

	t.Run("sandbox hides require", func(t *testing.T) {
		got := run(t, NewCustomNormalize, config.StepCustomNormalize,
			map[string]interface{}{"script": `function process(item) { return typeof require; }`},
			"x")
		assert.Equal(t, "undefined", got.Data)
	})
}

func TestStepFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, err := NewLowercase(config.StepConfig{Name: config.SectionSteps, Type: config.StepLowercase},
		step.Deps{Logger: zap.New(core)})
	require.NoError(t, err)

	it := &item.Item{ID: "bad", Data: 12}
	got := s.Process(it)
	assert.Equal(t, 12, got.Data)

	entries := logs.FilterField(zap.String("item_id", "bad")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	errField, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, errField, "lowercase")
}

func TestDebugger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, err := NewDebugger(config.StepConfig{Name: config.SectionSteps, Type: config.StepDebugger, LogLevel: "debug"},
		step.Deps{Logger: zap.New(core)})
	require.NoError(t, err)

	it := &item.Item{ID: "7", Data: "unchanged", Tags: map[string]interface{}{}}
	got := s.Process(it)
	assert.Same(t, it, got)
	assert.Equal(t, "unchanged", got.Data)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "debugger_step", logs.All()[0].LoggerName)
}

func TestUnsupportedDataIsRuntimeError(t *testing.T) {
	s := newStep(t, NewRemoveStopwords, config.StepRemoveStopwords, nil)
	got := s.Process(&item.Item{ID: "1", Data: map[string]int{"a": 1}})
	assert.Equal(t, map[string]int{"a": 1}, got.Data)

	_, err := step.MapText(&item.Item{Data: 1}, func(s string) (string, error) { return s, nil })
	assert.True(t, errors.Is(err, step.ErrUnsupportedData))
}
