package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folio_builder"

var (
	persistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "草稿保存或读取失败次数。",
		},
		[]string{"op"},
	)

	rendersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "renders_total",
			Help:      "预览渲染次数。",
		},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "mutations_total",
			Help:      "表单修改次数，按结果区分。",
		},
		[]string{"result"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "导出请求次数，按目标与结果区分。",
		},
		[]string{"sink", "result"},
	)
)

// PersistFailure 记录一次持久化失败。
func PersistFailure(op string) {
	persistFailuresTotal.WithLabelValues(op).Inc()
}

// RenderObserved 记录一次预览渲染。
func RenderObserved() {
	rendersTotal.Inc()
}

// MutationObserved 记录一次表单修改，ok 为 false 表示被拒绝并回滚。
func MutationObserved(ok bool) {
	result := "applied"
	if !ok {
		result = "rejected"
	}
	mutationsTotal.WithLabelValues(result).Inc()
}

// ExportObserved 记录一次导出。
func ExportObserved(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	exportsTotal.WithLabelValues(sink, result).Inc()
}
