package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default registry, where every metric in this package
// is registered.
func Handler() http.Handler {
	return promhttp.Handler()
}
