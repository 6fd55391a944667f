package capabilities

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
	"github.com/ajitpratap0/mcp-example-server/pkg/schema"
)

func calculateTool() registry.Tool {
	return registry.Tool{
		Name: "calculate",
		Metadata: registry.Metadata{
			Title:       "Calculator",
			Description: "Perform basic mathematical calculations",
		},
		Input: schema.Shape{
			{Name: "operation", Type: schema.TypeString, Required: true, Description: "Mathematical operation to perform",
				Enum: []string{"add", "subtract", "multiply", "divide"}},
			{Name: "a", Type: schema.TypeNumber, Required: true, Description: "First number"},
			{Name: "b", Type: schema.TypeNumber, Required: true, Description: "Second number"},
		},
		Handler: calculate,
	}
}

func calculate(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
	op := args.String("operation")
	a, b := args.Number("a"), args.Number("b")

	var result float64
	switch op {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return registry.ErrorResult("Error: Division by zero is not allowed"), nil
		}
		result = a / b
	default:
		return nil, fmt.Errorf("unsupported operation %q", op)
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return registry.ErrorResult("Error: Result is not a finite number"), nil
	}
	return registry.TextResult(fmt.Sprintf("%s %s %s = %s", formatNumber(a), op, formatNumber(b), formatNumber(result))), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func systemInfoTool(deps Deps) registry.Tool {
	return registry.Tool{
		Name: "get-system-info",
		Metadata: registry.Metadata{
			Title:       "System Information",
			Description: "Get information about the current system",
		},
		Input: schema.Shape{
			{Name: "type", Type: schema.TypeString, Required: true, Description: "Type of system information to retrieve",
				Enum: []string{"time", "platform", "memory"}},
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
			switch infoType := args.String("type"); infoType {
			case "time":
				return registry.TextResult("Current time: " + deps.Now().UTC().Format(time.RFC3339Nano)), nil
			case "platform":
				return registry.TextResult(platformInfo(ctx, deps)), nil
			case "memory":
				vm, err := deps.Memory(ctx)
				if err != nil {
					return nil, fmt.Errorf("read virtual memory: %w", err)
				}
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				return registry.TextResult(fmt.Sprintf(
					"Memory usage:\n- Total: %dMB\n- Available: %dMB\n- Used: %dMB\n- Heap In Use: %dMB",
					mb(vm.Total), mb(vm.Available), mb(vm.Used), mb(ms.HeapInuse),
				)), nil
			default:
				return nil, fmt.Errorf("unsupported info type %q", infoType)
			}
		},
	}
}

func platformInfo(ctx context.Context, deps Deps) string {
	info, err := deps.HostInfo(ctx)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Host info unavailable, reporting runtime platform")
		return fmt.Sprintf("Platform: %s %s, Go: %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
	}
	parts := []string{info.OS}
	if info.Platform != "" {
		parts = append(parts, strings.TrimSpace(info.Platform+" "+info.PlatformVersion))
	}
	if info.KernelVersion != "" {
		parts = append(parts, "kernel "+info.KernelVersion)
	}
	return fmt.Sprintf("Platform: %s (%s), Go: %s", strings.Join(parts, ", "), runtime.GOARCH, runtime.Version())
}

func mb(bytes uint64) uint64 {
	return bytes / 1024 / 1024
}

type mockUser struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Age     int    `json:"age"`
	Country string `json:"country"`
}

type mockProduct struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	InStock  bool    `json:"inStock"`
}

type mockOrder struct {
	ID        int     `json:"id"`
	UserID    int     `json:"userId"`
	ProductID int     `json:"productId"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
	Status    string  `json:"status"`
}

var (
	countries  = []string{"US", "UK", "CA", "AU", "DE"}
	categories = []string{"Electronics", "Clothing", "Books", "Home", "Sports"}
	statuses   = []string{"pending", "confirmed", "shipped", "delivered"}
)

func generateDataTool() registry.Tool {
	return registry.Tool{
		Name: "generate-data",
		Metadata: registry.Metadata{
			Title:       "Data Generator",
			Description: "Generate mock data for testing purposes",
		},
		Input: schema.Shape{
			{Name: "type", Type: schema.TypeString, Required: true, Description: "Type of data to generate",
				Enum: []string{"user", "product", "order"}},
			{Name: "count", Type: schema.TypeInteger, Description: "Number of items to generate",
				Default: 1, Minimum: schema.Bound(1), Maximum: schema.Bound(10)},
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
			count := args.Int("count")
			dataType := args.String("type")

			var data any
			switch dataType {
			case "user":
				data = generate(count, func(id int) mockUser {
					return mockUser{
						ID:      id,
						Name:    fmt.Sprintf("User %d", id),
						Email:   fmt.Sprintf("user%d@example.com", id),
						Age:     rand.IntN(50) + 18,
						Country: pick(countries),
					}
				})
			case "product":
				data = generate(count, func(id int) mockProduct {
					return mockProduct{
						ID:       id,
						Name:     fmt.Sprintf("Product %d", id),
						Price:    cents(rand.Float64() * 100),
						Category: pick(categories),
						InStock:  rand.Float64() > 0.2,
					}
				})
			case "order":
				data = generate(count, func(id int) mockOrder {
					return mockOrder{
						ID:        id,
						UserID:    rand.IntN(100) + 1,
						ProductID: rand.IntN(50) + 1,
						Quantity:  rand.IntN(5) + 1,
						Total:     cents(rand.Float64() * 500),
						Status:    pick(statuses),
					}
				})
			default:
				return nil, fmt.Errorf("unsupported data type %q", dataType)
			}

			text, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode %s data: %w", dataType, err)
			}
			return registry.TextResult(string(text)), nil
		},
	}
}

// generate builds count items with ids 1..count
func generate[T any](count int, item func(id int) T) []T {
	out := make([]T, 0, count)
	for id := 1; id <= count; id++ {
		out = append(out, item(id))
	}
	return out
}

func pick(values []string) string {
	return values[rand.IntN(len(values))]
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
