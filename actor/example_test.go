package actor_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/SatoshiAndKin/chandelier-or-not/actor"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
)

func Example() {
	token := shutdown.NewToken()

	upper := actor.ProcessorFunc[string, string](func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})

	ref, task := actor.New[string, string](upper, actor.Options{Name: "upper"}).Run(token)

	out, err := ref.Request(context.Background(), "chandelier")
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	fmt.Println(out)

	token.Cancel()

	fmt.Println(task.Wait(), ref.State())

	// Output:
	// CHANDELIER
	// <nil> stopped
}
