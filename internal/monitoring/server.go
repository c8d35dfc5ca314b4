package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

// Overdue payments above this count raise a collection alert
const overdueAlertThreshold = 25

// MonitoringServer serves the ops dashboard API on its own port: process and
// database stats plus live ledger health, with alerts pushed over WebSocket.
type MonitoringServer struct {
	db         *pgxpool.Pool
	store      *repositories.Store
	port       int
	alerts     []Alert
	alertsMux  sync.RWMutex
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Alert
}

type Alert struct {
	ID        int       `json:"id"`
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

type DashboardStats struct {
	DatabaseStatus    string      `json:"database_status"`
	ActiveConnections int         `json:"active_connections"`
	ResponseTime      int64       `json:"response_time_ms"`
	DBSize            string      `json:"db_size"`
	Uptime            string      `json:"uptime"`
	ActiveAlerts      int         `json:"active_alerts"`
	CPUPercent        float64     `json:"cpu_percent"`
	MemoryPercent     float64     `json:"memory_percent"`
	DiskPercent       float64     `json:"disk_percent"`
	MemoryUsed        string      `json:"memory_used"`
	MemoryTotal       string      `json:"memory_total"`
	DiskUsed          string      `json:"disk_used"`
	DiskTotal         string      `json:"disk_total"`
	Ledger            LedgerStats `json:"ledger"`
}

// LedgerStats is the business half of the dashboard
type LedgerStats struct {
	ActiveTenants   int     `json:"active_tenants"`
	PaymentsPending int     `json:"payments_pending"`
	PaymentsOverdue int     `json:"payments_overdue"`
	OutstandingRent float64 `json:"outstanding_rent"`
	DepositsHeld    int     `json:"deposits_held"`
	ReceiptsIssued  int     `json:"receipts_issued"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewMonitoringServer takes the raw pool for pg_stat queries (nil in
// in-memory mode) and the store for ledger stats.
func NewMonitoringServer(db *pgxpool.Pool, store *repositories.Store, port int) *MonitoringServer {
	return &MonitoringServer{
		db:        db,
		store:     store,
		port:      port,
		alerts:    make([]Alert, 0),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Alert),
	}
}

func (ms *MonitoringServer) Start() {
	r := mux.NewRouter()

	// API endpoints
	r.HandleFunc("/api/stats", ms.getStats).Methods("GET")
	r.HandleFunc("/api/alerts", ms.getAlerts).Methods("GET")

	// WebSocket for real-time updates
	r.HandleFunc("/ws", ms.handleWebSocket)

	// Start background alert broadcaster
	go ms.handleBroadcast()

	// Start background health checker
	go ms.monitorHealth()

	addr := fmt.Sprintf(":%d", ms.port)
	log.Printf("[Monitoring] Dashboard API running on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func (ms *MonitoringServer) getStats(w http.ResponseWriter, r *http.Request) {
	stats := ms.collectStats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (ms *MonitoringServer) collectStats() DashboardStats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dbStatus, responseTime, activeConns, dbSize, uptime := ms.collectDatabaseStats(ctx)

	// System metrics for the current process host
	cpuPercents, _ := cpu.Percent(time.Second, false)
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	ms.alertsMux.RLock()
	activeAlertCount := 0
	for _, alert := range ms.alerts {
		if !alert.Resolved {
			activeAlertCount++
		}
	}
	ms.alertsMux.RUnlock()

	return DashboardStats{
		DatabaseStatus:    dbStatus,
		ActiveConnections: activeConns,
		ResponseTime:      responseTime,
		DBSize:            dbSize,
		Uptime:            uptime,
		ActiveAlerts:      activeAlertCount,
		CPUPercent:        cpuPercent,
		MemoryPercent:     memStats.UsedPercent,
		DiskPercent:       diskStats.UsedPercent,
		MemoryUsed:        formatBytes(memStats.Used),
		MemoryTotal:       formatBytes(memStats.Total),
		DiskUsed:          formatBytes(diskStats.Used),
		DiskTotal:         formatBytes(diskStats.Total),
		Ledger:            ms.collectLedgerStats(ctx),
	}
}

func (ms *MonitoringServer) collectDatabaseStats(ctx context.Context) (status string, responseTime int64, conns int, size, uptime string) {
	if ms.db == nil {
		return "in_memory", 0, 0, "-", "-"
	}

	start := time.Now()
	err := ms.db.Ping(ctx)
	responseTime = time.Since(start).Milliseconds()

	status = "healthy"
	if err != nil {
		return "unhealthy", responseTime, 0, "-", "-"
	}

	ms.db.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&conns)

	var dbSizeBytes int64
	ms.db.QueryRow(ctx, "SELECT pg_database_size(current_database())").Scan(&dbSizeBytes)
	size = formatBytes(uint64(dbSizeBytes))

	var uptimeSec int
	ms.db.QueryRow(ctx, "SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time()))::int").Scan(&uptimeSec)
	uptime = formatUptime(uptimeSec)

	return status, responseTime, conns, size, uptime
}

func (ms *MonitoringServer) collectLedgerStats(ctx context.Context) LedgerStats {
	var stats LedgerStats

	if tenants, err := ms.store.Tenants.GetAll(ctx); err == nil {
		for _, t := range tenants {
			if t.IsActive {
				stats.ActiveTenants++
			}
		}
	}

	if payments, err := ms.store.RentPayments.GetAll(ctx); err == nil {
		for _, p := range payments {
			switch p.Status {
			case models.PaymentStatusPending:
				stats.PaymentsPending++
				stats.OutstandingRent += p.DerivedActualAmount()
			case models.PaymentStatusOverdue:
				stats.PaymentsOverdue++
				stats.OutstandingRent += p.DerivedActualAmount()
			case models.PaymentStatusPartial:
				if rest := p.DerivedActualAmount() - p.ActualAmountPaid; rest > 0 {
					stats.OutstandingRent += rest
				}
			}
		}
	}

	if deposits, err := ms.store.Deposits.GetAll(ctx); err == nil {
		for _, d := range deposits {
			if d.Status == models.DepositStatusHeld {
				stats.DepositsHeld++
			}
		}
	}

	if receipts, err := ms.store.RentReceipts.GetAll(ctx); err == nil {
		stats.ReceiptsIssued = len(receipts)
	}

	return stats
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func (ms *MonitoringServer) getAlerts(w http.ResponseWriter, r *http.Request) {
	ms.alertsMux.RLock()
	defer ms.alertsMux.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ms.alerts)
}

func (ms *MonitoringServer) addAlert(alert Alert) {
	ms.alertsMux.Lock()
	alert.ID = len(ms.alerts) + 1
	alert.Timestamp = time.Now()
	ms.alerts = append(ms.alerts, alert)
	ms.alertsMux.Unlock()

	ms.broadcast <- alert
}

func (ms *MonitoringServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Monitoring] WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	ms.clientsMux.Lock()
	ms.clients[conn] = true
	ms.clientsMux.Unlock()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			ms.clientsMux.Lock()
			delete(ms.clients, conn)
			ms.clientsMux.Unlock()
			break
		}
	}
}

func (ms *MonitoringServer) handleBroadcast() {
	for alert := range ms.broadcast {
		ms.clientsMux.Lock()
		for client := range ms.clients {
			err := client.WriteJSON(alert)
			if err != nil {
				client.Close()
				delete(ms.clients, client)
			}
		}
		ms.clientsMux.Unlock()
	}
}

// monitorHealth raises alerts on database trouble and overdue spikes. A
// condition alerts again on every tick while it persists; the dashboard is
// expected to resolve or mute.
func (ms *MonitoringServer) monitorHealth() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		stats := ms.collectStats()

		if stats.DatabaseStatus == "unhealthy" {
			ms.addAlert(Alert{
				Severity: "critical",
				Type:     "database_down",
				Message:  "Database is unreachable",
			})
		}

		if stats.ResponseTime > 1000 {
			ms.addAlert(Alert{
				Severity: "warning",
				Type:     "high_latency",
				Message:  fmt.Sprintf("Database response time: %dms", stats.ResponseTime),
			})
		}

		if stats.Ledger.PaymentsOverdue > overdueAlertThreshold {
			ms.addAlert(Alert{
				Severity: "warning",
				Type:     "overdue_spike",
				Message:  fmt.Sprintf("%d payments overdue, Rs. %.2f outstanding", stats.Ledger.PaymentsOverdue, stats.Ledger.OutstandingRent),
			})
		}
	}
}
