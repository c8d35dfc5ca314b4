package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentledger-backend/internal/handlers"
	"rentledger-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	totpHandler *handlers.TOTPHandler,
	userHandler *handlers.UserHandler,
	tenantHandler *handlers.TenantHandler,
	propertyHandler *handlers.PropertyHandler,
	rentPaymentHandler *handlers.RentPaymentHandler,
	receiptHandler *handlers.ReceiptHandler,
	depositHandler *handlers.DepositHandler,
	reportHandler *handlers.ReportHandler,
	razorpayHandler *handlers.RazorpayHandler,
	portalHandler *handlers.PortalHandler,
	systemSettingHandler *handlers.SystemSettingHandler,
	smsHandler *handlers.SMSHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	tenantAuthMiddleware *middleware.TenantAuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/verify-2fa", authHandler.VerifyTOTP).Methods("POST")

	// Razorpay server-to-server events (signature-verified, not JWT)
	r.HandleFunc("/webhooks/razorpay", razorpayHandler.Webhook).Methods("POST")

	// Protected API routes - 2FA management for the logged-in user
	twoFAAPI := r.PathPrefix("/api/auth/2fa").Subrouter()
	twoFAAPI.Use(authMiddleware.Authenticate)
	twoFAAPI.HandleFunc("/setup", totpHandler.Setup).Methods("POST")
	twoFAAPI.HandleFunc("/enable", totpHandler.Enable).Methods("POST")
	twoFAAPI.HandleFunc("/disable", totpHandler.Disable).Methods("POST")
	twoFAAPI.HandleFunc("/status", totpHandler.Status).Methods("GET")
	twoFAAPI.HandleFunc("/backup-codes/regenerate", totpHandler.RegenerateBackupCodes).Methods("POST")

	// Protected API routes - Rent Payments (viewers read, writers mutate)
	rentPaymentsAPI := r.PathPrefix("/api/rent-payments").Subrouter()
	rentPaymentsAPI.Use(authMiddleware.Authenticate)
	rentPaymentsAPI.HandleFunc("", rentPaymentHandler.ListPayments).Methods("GET")
	rentPaymentsAPI.HandleFunc("", authMiddleware.RequireWriter(http.HandlerFunc(rentPaymentHandler.CreatePayment)).ServeHTTP).Methods("POST")
	rentPaymentsAPI.HandleFunc("/overdue", rentPaymentHandler.GetOverdue).Methods("GET")
	rentPaymentsAPI.HandleFunc("/upcoming", rentPaymentHandler.GetUpcoming).Methods("GET")
	rentPaymentsAPI.HandleFunc("/generate-monthly", authMiddleware.RequireWriter(http.HandlerFunc(rentPaymentHandler.GenerateMonthly)).ServeHTTP).Methods("POST")
	rentPaymentsAPI.HandleFunc("/sweep-overdue", authMiddleware.RequireWriter(http.HandlerFunc(rentPaymentHandler.SweepOverdue)).ServeHTTP).Methods("POST")
	rentPaymentsAPI.HandleFunc("/{id}", rentPaymentHandler.GetPayment).Methods("GET")
	rentPaymentsAPI.HandleFunc("/{id}", authMiddleware.RequireWriter(http.HandlerFunc(rentPaymentHandler.UpdatePayment)).ServeHTTP).Methods("PUT")
	rentPaymentsAPI.HandleFunc("/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(rentPaymentHandler.DeletePayment)).ServeHTTP).Methods("DELETE")
	rentPaymentsAPI.HandleFunc("/{id}/mark-paid", authMiddleware.RequireWriter(http.HandlerFunc(rentPaymentHandler.MarkPaid)).ServeHTTP).Methods("POST")
	rentPaymentsAPI.HandleFunc("/{id}/mark-partial", authMiddleware.RequireWriter(http.HandlerFunc(rentPaymentHandler.MarkPartial)).ServeHTTP).Methods("POST")
	rentPaymentsAPI.HandleFunc("/{id}/receipt", receiptHandler.GetReceiptByPayment).Methods("GET")
	rentPaymentsAPI.HandleFunc("/{id}/receipt", authMiddleware.RequireWriter(http.HandlerFunc(receiptHandler.GenerateReceipt)).ServeHTTP).Methods("POST")

	// Protected API routes - Rent Receipts
	receiptsAPI := r.PathPrefix("/api/rent-receipts").Subrouter()
	receiptsAPI.Use(authMiddleware.Authenticate)
	receiptsAPI.HandleFunc("", receiptHandler.ListReceipts).Methods("GET")
	receiptsAPI.HandleFunc("/bulk-pdf", receiptHandler.DownloadReceiptsZip).Methods("GET")
	receiptsAPI.HandleFunc("/{id}", receiptHandler.GetReceipt).Methods("GET")
	receiptsAPI.HandleFunc("/{id}/pdf", receiptHandler.DownloadReceiptPDF).Methods("GET")

	// Protected API routes - Security Deposits
	depositsAPI := r.PathPrefix("/api/security-deposits").Subrouter()
	depositsAPI.Use(authMiddleware.Authenticate)
	depositsAPI.HandleFunc("", depositHandler.ListDeposits).Methods("GET")
	depositsAPI.HandleFunc("", authMiddleware.RequireWriter(http.HandlerFunc(depositHandler.RecordDeposit)).ServeHTTP).Methods("POST")
	depositsAPI.HandleFunc("/{id}", depositHandler.GetDeposit).Methods("GET")

	// Protected API routes - Tenants (deposit sub-resources live here too)
	tenantsAPI := r.PathPrefix("/api/tenants").Subrouter()
	tenantsAPI.Use(authMiddleware.Authenticate)
	tenantsAPI.HandleFunc("", tenantHandler.ListTenants).Methods("GET")
	tenantsAPI.HandleFunc("", authMiddleware.RequireWriter(http.HandlerFunc(tenantHandler.CreateTenant)).ServeHTTP).Methods("POST")
	tenantsAPI.HandleFunc("/by-phone/{phone}", tenantHandler.GetTenantByPhone).Methods("GET")
	tenantsAPI.HandleFunc("/{id}", tenantHandler.GetTenant).Methods("GET")
	tenantsAPI.HandleFunc("/{id}", authMiddleware.RequireWriter(http.HandlerFunc(tenantHandler.UpdateTenant)).ServeHTTP).Methods("PUT")
	tenantsAPI.HandleFunc("/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(tenantHandler.DeleteTenant)).ServeHTTP).Methods("DELETE")
	tenantsAPI.HandleFunc("/{id}/move-in", authMiddleware.RequireWriter(http.HandlerFunc(tenantHandler.MoveIn)).ServeHTTP).Methods("POST")
	tenantsAPI.HandleFunc("/{id}/move-out", authMiddleware.RequireWriter(http.HandlerFunc(tenantHandler.MoveOut)).ServeHTTP).Methods("POST")
	tenantsAPI.HandleFunc("/{id}/security-deposit", depositHandler.GetDepositByTenant).Methods("GET")
	tenantsAPI.HandleFunc("/{id}/security-deposit/deductions", authMiddleware.RequireWriter(http.HandlerFunc(depositHandler.AddDeduction)).ServeHTTP).Methods("POST")
	tenantsAPI.HandleFunc("/{id}/security-deposit/refund", authMiddleware.RequireWriter(http.HandlerFunc(depositHandler.RefundDeposit)).ServeHTTP).Methods("POST")
	tenantsAPI.HandleFunc("/{id}/security-deposit/forfeit", authMiddleware.RequireAdmin(http.HandlerFunc(depositHandler.ForfeitDeposit)).ServeHTTP).Methods("POST")

	// Protected API routes - Properties
	propertiesAPI := r.PathPrefix("/api/properties").Subrouter()
	propertiesAPI.Use(authMiddleware.Authenticate)
	propertiesAPI.HandleFunc("/buildings", propertyHandler.ListBuildings).Methods("GET")
	propertiesAPI.HandleFunc("/buildings", authMiddleware.RequireWriter(http.HandlerFunc(propertyHandler.CreateBuilding)).ServeHTTP).Methods("POST")
	propertiesAPI.HandleFunc("/buildings/{id}", propertyHandler.GetBuilding).Methods("GET")
	propertiesAPI.HandleFunc("/flats", propertyHandler.ListFlats).Methods("GET")
	propertiesAPI.HandleFunc("/flats", authMiddleware.RequireWriter(http.HandlerFunc(propertyHandler.CreateFlat)).ServeHTTP).Methods("POST")
	propertiesAPI.HandleFunc("/flats/{id}", propertyHandler.GetFlat).Methods("GET")
	propertiesAPI.HandleFunc("/lands", propertyHandler.ListLands).Methods("GET")
	propertiesAPI.HandleFunc("/lands", authMiddleware.RequireWriter(http.HandlerFunc(propertyHandler.CreateLand)).ServeHTTP).Methods("POST")
	propertiesAPI.HandleFunc("/lands/{id}", propertyHandler.GetLand).Methods("GET")

	// Protected API routes - Collection Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("", reportHandler.ListReports).Methods("GET")
	reportsAPI.HandleFunc("/generate", authMiddleware.RequireWriter(http.HandlerFunc(reportHandler.GenerateReport)).ServeHTTP).Methods("POST")
	reportsAPI.HandleFunc("/analytics", reportHandler.GetAnalytics).Methods("GET")
	reportsAPI.HandleFunc("/{id}", reportHandler.GetReport).Methods("GET")
	reportsAPI.HandleFunc("/{id}/csv", reportHandler.GetReportCSV).Methods("GET")
	reportsAPI.HandleFunc("/{id}/pdf", reportHandler.GetReportPDF).Methods("GET")

	// Protected API routes - Online checkout (staff side)
	checkoutAPI := r.PathPrefix("/api/checkout").Subrouter()
	checkoutAPI.Use(authMiddleware.Authenticate)
	checkoutAPI.HandleFunc("/status", razorpayHandler.GetStatus).Methods("GET")
	checkoutAPI.HandleFunc("/order", authMiddleware.RequireWriter(http.HandlerFunc(razorpayHandler.CreateOrder)).ServeHTTP).Methods("POST")
	checkoutAPI.HandleFunc("/verify", authMiddleware.RequireWriter(http.HandlerFunc(razorpayHandler.VerifyPayment)).ServeHTTP).Methods("POST")
	checkoutAPI.HandleFunc("/transactions", authMiddleware.RequireAdmin(http.HandlerFunc(razorpayHandler.ListTransactions)).ServeHTTP).Methods("GET")
	checkoutAPI.HandleFunc("/reconcile", authMiddleware.RequireAdmin(http.HandlerFunc(razorpayHandler.Reconcile)).ServeHTTP).Methods("POST")

	// Protected API routes - Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("", authMiddleware.RequireAdmin(http.HandlerFunc(userHandler.ListUsers)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("", authMiddleware.RequireAdmin(http.HandlerFunc(userHandler.CreateUser)).ServeHTTP).Methods("POST")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(userHandler.GetUser)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(userHandler.UpdateUser)).ServeHTTP).Methods("PUT")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireAdmin(http.HandlerFunc(userHandler.DeleteUser)).ServeHTTP).Methods("DELETE")

	// Protected API routes - System Settings (admin only)
	settingsAPI := r.PathPrefix("/api/settings").Subrouter()
	settingsAPI.Use(authMiddleware.Authenticate)
	settingsAPI.HandleFunc("", authMiddleware.RequireAdmin(http.HandlerFunc(systemSettingHandler.ListSettings)).ServeHTTP).Methods("GET")
	settingsAPI.HandleFunc("/{key}", authMiddleware.RequireAdmin(http.HandlerFunc(systemSettingHandler.GetSetting)).ServeHTTP).Methods("GET")
	settingsAPI.HandleFunc("/{key}", authMiddleware.RequireAdmin(http.HandlerFunc(systemSettingHandler.UpdateSetting)).ServeHTTP).Methods("PUT")

	// Protected API routes - SMS logs (admin only)
	smsAPI := r.PathPrefix("/api/sms").Subrouter()
	smsAPI.Use(authMiddleware.Authenticate)
	smsAPI.HandleFunc("/logs", authMiddleware.RequireAdmin(http.HandlerFunc(smsHandler.ListLogs)).ServeHTTP).Methods("GET")

	// Public API - Tenant portal login
	r.HandleFunc("/portal/auth/request-otp", portalHandler.RequestOTP).Methods("POST")
	r.HandleFunc("/portal/auth/verify-otp", portalHandler.VerifyOTP).Methods("POST")

	// Protected API routes - Tenant portal (requires tenant JWT)
	portalAPI := r.PathPrefix("/portal").Subrouter()
	portalAPI.Use(tenantAuthMiddleware.Authenticate)
	portalAPI.HandleFunc("/dashboard", portalHandler.Dashboard).Methods("GET")
	portalAPI.HandleFunc("/payments", portalHandler.MyPayments).Methods("GET")
	portalAPI.HandleFunc("/receipts", portalHandler.MyReceipts).Methods("GET")
	portalAPI.HandleFunc("/receipts/{id}/pdf", portalHandler.MyReceiptPDF).Methods("GET")
	portalAPI.HandleFunc("/checkout/status", portalHandler.CheckoutStatus).Methods("GET")
	portalAPI.HandleFunc("/checkout/order", portalHandler.CreateCheckoutOrder).Methods("POST")
	portalAPI.HandleFunc("/checkout/verify", portalHandler.VerifyCheckout).Methods("POST")
	portalAPI.HandleFunc("/checkout/transactions", portalHandler.MyTransactions).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
