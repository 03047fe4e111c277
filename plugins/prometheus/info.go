package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	infoApp *prometheus.GaugeVec
)

func configureInfo() {
	infoApp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cycled",
			Subsystem: "info",
			Name:      "app",
			Help:      "Node software name and version.",
		},
		[]string{"name", "version"},
	)
	infoApp.WithLabelValues(deps.AppInfo.Name, deps.AppInfo.Version).Set(1)

	registry.MustRegister(infoApp)
}
