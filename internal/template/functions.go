package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

var funcRegistry = map[string]func(args string) (string, error){
	"uuid":          fnUUID,
	"timestamp":     fnTimestamp,
	"timestamp_ms":  fnTimestampMs,
	"random":        fnRandom,
	"random_string": fnRandomString,
	"date":          fnDate,
}

// evalFunction evaluates a built-in function call such as random(1,5).
// The second return value is false when expr is not a known function.
func evalFunction(expr string) (string, bool, error) {
	parenIdx := strings.Index(expr, "(")
	if parenIdx == -1 || !strings.HasSuffix(expr, ")") {
		return "", false, nil
	}

	funcName := expr[:parenIdx]
	args := expr[parenIdx+1 : len(expr)-1]

	fn, ok := funcRegistry[funcName]
	if !ok {
		return "", false, nil
	}

	result, err := fn(args)
	if err != nil {
		return "", true, fmt.Errorf("function %s: %w", funcName, err)
	}
	return result, true, nil
}

func fnUUID(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("uuid() takes no arguments")
	}
	return uuid.NewString(), nil
}

func fnTimestamp(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("timestamp() takes no arguments")
	}
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func fnTimestampMs(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("timestamp_ms() takes no arguments")
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

// fnRandom returns an integer in [min, max].
// Usage: random(min,max)
func fnRandom(args string) (string, error) {
	parts := strings.Split(args, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("random(min,max) requires exactly 2 arguments")
	}

	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("invalid min value: %w", err)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", fmt.Errorf("invalid max value: %w", err)
	}
	if lo > hi {
		return "", fmt.Errorf("min (%d) must be <= max (%d)", lo, hi)
	}

	return strconv.Itoa(withFaker(func(f *gofakeit.Faker) int { return f.IntRange(lo, hi) })), nil
}

// fnRandomString returns n random letters.
// Usage: random_string(n)
func fnRandomString(args string) (string, error) {
	length, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "", fmt.Errorf("invalid length: %w", err)
	}
	if length <= 0 || length > 1000 {
		return "", fmt.Errorf("length must be in 1..1000")
	}
	return withFaker(func(f *gofakeit.Faker) string { return f.LetterN(uint(length)) }), nil
}

// fnDate formats the current time using a Go layout, RFC 3339 when empty.
func fnDate(args string) (string, error) {
	format := strings.TrimSpace(args)
	if format == "" {
		format = time.RFC3339
	}
	return time.Now().Format(format), nil
}

// fakeKinds backs ${fake:<kind>} placeholders.
var fakeKinds = map[string]func(*gofakeit.Faker) string{
	"name":       func(f *gofakeit.Faker) string { return f.Name() },
	"first_name": func(f *gofakeit.Faker) string { return f.FirstName() },
	"last_name":  func(f *gofakeit.Faker) string { return f.LastName() },
	"email":      func(f *gofakeit.Faker) string { return f.Email() },
	"username":   func(f *gofakeit.Faker) string { return f.Username() },
	"phone":      func(f *gofakeit.Faker) string { return f.Phone() },
	"street":     func(f *gofakeit.Faker) string { return f.Street() },
	"city":       func(f *gofakeit.Faker) string { return f.City() },
	"zip":        func(f *gofakeit.Faker) string { return f.Zip() },
	"country":    func(f *gofakeit.Faker) string { return f.Country() },
	"company":    func(f *gofakeit.Faker) string { return f.Company() },
	"word":       func(f *gofakeit.Faker) string { return f.Word() },
}

var (
	fakerMu sync.Mutex
	faker   = gofakeit.New(0)
)

// withFaker serialises access to the shared faker, which is not goroutine-safe.
func withFaker[T any](fn func(*gofakeit.Faker) T) T {
	fakerMu.Lock()
	defer fakerMu.Unlock()
	return fn(faker)
}

func fake(kind string) (string, error) {
	gen, ok := fakeKinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown fake kind %q (known: %s)", kind, strings.Join(FakeKinds(), ", "))
	}
	return withFaker(gen), nil
}

// FakeKinds lists the names accepted by ${fake:<kind>}.
func FakeKinds() []string {
	kinds := make([]string, 0, len(fakeKinds))
	for k := range fakeKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
