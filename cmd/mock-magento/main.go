package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nazeru/storefront-checkout-go/internal/mockmagento"
	"github.com/nazeru/storefront-checkout-go/pkg/metrics"
)

func main() {
	port := getenv("PORT", "8080")

	backend := mockmagento.New(metrics.NewServerMetrics(nil, "mock_magento"))
	if strings.EqualFold(getenv("FAIL_ORDERS", "false"), "true") {
		backend.SetFailOrders(true)
	}

	srv := &http.Server{Addr: ":" + port, Handler: backend.Handler(), ReadHeaderTimeout: 5 * time.Second}
	log.Printf("mock-magento listening on :%s", port)
	log.Fatal(srv.ListenAndServe())
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
