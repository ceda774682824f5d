// Command testserver runs the in-memory fake shop for local simulations.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port       Port to listen on (default: 8080)
//	-host       Host to bind to (default: localhost)
//	-seed       Catalog seed, 0 for random (default: 1)
//	-fail-rate  Fraction of requests answered with 503 (default: 0)
//	-latency    Delay added to every response (default: 0)
//	-wrap       Serve /products wrapped in {"products": [...]}
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trafficgen/internal/config"
	"trafficgen/internal/logging"
	"trafficgen/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	seed := flag.Uint64("seed", 1, "catalog seed (0 = random)")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests answered with 503")
	latency := flag.Duration("latency", 0, "delay added to every response")
	wrap := flag.Bool("wrap", false, "wrap the product list in an object")
	flag.Parse()

	log := logging.New(config.LoggingConfig{Level: "info", Format: "console"}, os.Stderr)
	defer log.Sync()

	shop := testserver.NewServerWithOptions(testserver.Options{
		Seed:         *seed,
		FailRate:     *failRate,
		Latency:      *latency,
		WrapProducts: *wrap,
	})
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("Fake Shop Test Server")
	fmt.Println("=====================")
	fmt.Printf("Listening on http://%s (%d products)\n\n", addr, len(shop.Products()))
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /                  - Main page")
	fmt.Println("  POST /add_user          - Register (user_id, name, email, gender, age) -> 201")
	fmt.Println("  POST /login             - Login (user_id), sets session cookie")
	fmt.Println("  POST /logout            - Logout")
	fmt.Println("  POST /delete_user       - Delete account (user_id)")
	fmt.Println("  GET  /products          - Product list")
	fmt.Println("  GET  /product?id=       - Product detail")
	fmt.Println("  GET  /categories        - Category list")
	fmt.Println("  GET  /category?name=    - Products in a category")
	fmt.Println("  GET  /search?query=     - Search products")
	fmt.Println("  GET  /cart/view         - Cart (login required)")
	fmt.Println("  POST /cart/add          - Add to cart (id, quantity)")
	fmt.Println("  POST /cart/remove       - Remove from cart (product_id, quantity)")
	fmt.Println("  POST /checkout          - Place order")
	fmt.Println("  GET  /checkout_history  - Past orders")
	fmt.Println("  POST /add_review        - Review (product_id, rating)")
	fmt.Println("  GET  /error             - Always 500")
	fmt.Println()

	srv := &http.Server{
		Addr:              addr,
		Handler:           shop.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}
