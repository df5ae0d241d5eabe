package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/PropertyHub/internal/config"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/middleware"
)

// Routes carries what MountRoutes needs besides the handlers.
type Routes struct {
	Tokens    middleware.TokenVerifier
	RateLimit config.RateLimit
	// Responses stores idempotent replies; nil disables replay.
	Responses middleware.ResponseStore
	// Realtime serves GET /ws; nil leaves the endpoint unmounted.
	Realtime http.Handler
}

var (
	billReaders      = []user.Role{user.RoleClient, user.RoleManager, user.RoleMaintainer, user.RoleJanitor}
	maintenanceRoles = []user.Role{user.RoleClient, user.RoleMaintainer, user.RoleJanitor, user.RoleManager}
	ticketReaders    = []user.Role{user.RoleClient, user.RoleMaintainer, user.RoleJanitor, user.RoleManager, user.RoleTenant}
	noticeRoles      = []user.Role{user.RoleClient, user.RoleMaintainer, user.RoleJanitor}
)

// MountRoutes registers the health checks, the websocket endpoint and the
// /api/v1 API on the given chi router. Parameters sharing a segment position
// must share a name in chi, so /messages and /bills address resources as {id}.
func MountRoutes(r chi.Router, h *Handlers, rt Routes) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.ReadyCheck)
	if rt.Realtime != nil {
		r.Handle("/ws", rt.Realtime)
	}

	authenticated := middleware.Authenticate(rt.Tokens)
	clientOnly := middleware.AllowAccess(user.RoleClient)
	superAdmin := middleware.AllowAccess(user.RoleSuperAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(rt.RateLimit))

		// Public
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRateLimit(rt.RateLimit))
			r.Post("/auth/register", h.Register)
			r.Post("/auth/login", h.Login)
		})
		r.Get("/subscription/plans", h.ListActivePlans)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			if rt.Responses != nil {
				r.Use(middleware.Idempotency(rt.Responses, h.Log))
			}

			// Session
			r.Post("/auth/logout", h.Logout)
			r.Post("/auth/logout-all", h.LogoutAll)
			r.Post("/auth/logout-others", h.LogoutOthers)
			r.Get("/auth/me", h.Me)
			r.Put("/auth/password", h.ChangePassword)

			// Maintenance
			r.Route("/maintenance", func(r chi.Router) {
				r.With(middleware.AllowAccess(user.RoleTenant)).Post("/create", h.CreateMaintenance)
				r.With(middleware.AllowAccess(ticketReaders...)).Get("/list", h.ListMaintenance)
				r.With(middleware.AllowAccess(maintenanceRoles...), middleware.RequirePermission(user.PermUpdateMaintenance)).
					Put("/{id}/update", h.UpdateMaintenance)
			})

			// Messages
			r.Route("/messages", func(r chi.Router) {
				r.Use(middleware.DenyAccess(user.RoleSuperAdmin))
				r.Get("/", h.ListConversations)
				r.Get("/archived", h.ListArchivedConversations)
				r.Get("/recent", h.RecentMessages)
				r.Post("/start", h.StartPairConversation)
				r.Get("/{id}", h.GetConversation)
				r.Post("/{id}", h.SendMessage)
				r.Put("/{id}/archive", h.ArchiveConversation)
				r.Put("/{id}/unarchive", h.UnarchiveConversation)
				r.Post("/{id}/start", h.StartTicketConversation)
			})

			// Subscription
			r.With(clientOnly).Post("/subscription/active-by-code", h.RedeemCoupon)
			r.With(clientOnly).Get("/subscription/bills", h.SubscriptionBills)
			r.Route("/subscription/plan", func(r chi.Router) {
				r.Use(superAdmin)
				r.Get("/", h.ListAllPlans)
				r.Post("/", h.CreatePlan)
				r.Put("/{planId}", h.UpdatePlan)
				r.Delete("/{planId}", h.DeletePlan)
				r.Put("/{planId}/popular", h.MakePlanPopular)
				r.Put("/{planId}/status", h.SetPlanStatus)
			})
			r.Route("/coupons", func(r chi.Router) {
				r.Use(superAdmin)
				r.Post("/", h.CreateCoupon)
				r.Get("/", h.ListCoupons)
				r.Delete("/{couponId}", h.DeleteCoupon)
			})

			// Bills
			r.Route("/bills", func(r chi.Router) {
				r.With(middleware.AllowAccess(user.RoleTenant)).Get("/mybills", h.MyBills)
				r.With(middleware.AllowAccess(billReaders...), middleware.RequirePermission(user.PermReadBill)).
					Get("/all", h.ListBills)
				r.With(clientOnly).Post("/{id}/rent", h.GenerateRent)
				r.With(clientOnly).Post("/{id}/deposit", h.GenerateDeposit)
				r.With(clientOnly).Put("/{id}/update", h.UpdateBill)
			})

			// Notifications
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Put("/read-all", h.MarkAllNotificationsRead)
				r.Put("/{notificationId}/read", h.MarkNotificationRead)
			})

			// Notices
			r.Route("/notice", func(r chi.Router) {
				r.Use(middleware.AllowAccess(noticeRoles...))
				r.With(middleware.RequirePermission(user.PermCreateNotice)).Post("/", h.CreateNotice)
				r.With(middleware.RequirePermission(user.PermReadNotice)).Get("/", h.ListNotices)
				r.With(middleware.RequirePermission(user.PermCreateNotice)).Delete("/{noticeId}", h.ArchiveNotice)
			})

			// Properties, staff and tenants
			r.Route("/properties", func(r chi.Router) {
				r.Use(clientOnly)
				r.Post("/", h.CreateProperty)
				r.Get("/", h.ListProperties)
				r.Post("/{propertyId}/apartments", h.CreateApartment)
				r.Get("/{propertyId}/apartments", h.ListApartments)
				r.Delete("/{propertyId}/apartments/{apartmentId}", h.DeleteApartment)
			})
			r.Route("/staff", func(r chi.Router) {
				r.Use(clientOnly)
				r.Post("/", h.CreateStaff)
				r.Get("/", h.ListStaff)
				r.Put("/{userId}/properties", h.SetStaffProperties)
				r.Put("/{userId}/permissions", h.SetStaffPermissions)
				r.Put("/{userId}/status", h.SetStaffStatus)
				r.Delete("/{userId}", h.DeleteStaff)
			})
			r.Route("/tenants", func(r chi.Router) {
				r.Use(clientOnly)
				r.Post("/", h.CreateTenant)
				r.Get("/", h.ListTenants)
				r.Put("/{tenantId}/status", h.SetTenantStatus)
				r.Put("/{tenantId}/home", h.AssignHome)
			})

			r.With(middleware.DenyAccess(user.RoleSuperAdmin)).Get("/users/{userId}/online", h.UserOnline)

			// Reports
			r.Route("/reports", func(r chi.Router) {
				r.Use(clientOnly)
				r.Get("/maintenance.xlsx", h.MaintenanceReport)
				r.Get("/bills.xlsx", h.BillsReport)
			})
			r.With(clientOnly).Get("/dashboard/client", h.ClientDashboard)

			// Help desk and feedback
			r.Route("/support", func(r chi.Router) {
				r.With(middleware.DenyAccess(user.RoleSuperAdmin)).Post("/ticket", h.OpenSupportTicket)
				r.With(middleware.DenyAccess(user.RoleSuperAdmin)).Get("/mytickets", h.MySupportTickets)
				r.Group(func(r chi.Router) {
					r.Use(superAdmin)
					r.Post("/ticketbyadmin", h.OpenSupportTicketFor)
					r.Get("/tickets", h.ListSupportTickets)
					r.Get("/tickets-open", h.OpenSupportTickets)
					r.Put("/ticket/{ticketId}", h.UpdateSupportTicket)
				})
			})
			r.Route("/feedback", func(r chi.Router) {
				r.Post("/", h.SendFeedback)
				r.Group(func(r chi.Router) {
					r.Use(superAdmin)
					r.Get("/", h.ListFeedback)
					r.Get("/{feedbackId}", h.GetFeedback)
					r.Put("/{feedbackId}", h.UpdateFeedback)
					r.Delete("/{feedbackId}", h.DeleteFeedback)
				})
			})

			// Clients
			r.Route("/clients", func(r chi.Router) {
				r.Use(superAdmin)
				r.Get("/", h.ListClients)
				r.Get("/{clientId}", h.GetClient)
				r.Put("/{clientId}/archive", h.ToggleClientArchive)
			})
		})
	})
}
