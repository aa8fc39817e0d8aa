package tenantq_test

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
	"github.com/dmitrymomot/tenantq/pkg/tenantq"
)

func ExampleUtilities_AddAsyncTask() {
	cluster, err := queue.NewCluster(queue.NewMemoryBroker("example"),
		queue.WithSecret("secret"),
		queue.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		panic(err)
	}
	_ = cluster.RegisterFunc("math.pow", func(_ context.Context, args []any, _ map[string]any) (any, error) {
		return math.Pow(args[0].(float64), args[1].(float64)), nil
	})

	utils, err := tenantq.New(cluster, nil)
	if err != nil {
		panic(err)
	}

	ctx := tenant.WithSchema(context.Background(), "acme")
	id, err := utils.AddAsyncTask(ctx, "math.pow", []any{2.0, 10.0}, nil, queue.WithSync(true))
	if err != nil {
		panic(err)
	}

	value, err := utils.GetResult(ctx, id)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(value))

	other, _ := utils.GetResult(tenant.WithSchema(context.Background(), "globex"), id)
	fmt.Println(other == nil)
	// Output:
	// 1024
	// true
}
