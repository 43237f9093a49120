package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"praxis-backend/conn"
	"praxis-backend/credits"
	"praxis-backend/gate"
	"praxis-backend/migrations"
	"praxis-backend/openai"
	"praxis-backend/payments"
	"praxis-backend/sessions"
	"praxis-backend/subscriptions"
	"praxis-backend/tutor"
)

const (
	sessionReapInterval  = time.Hour
	subscriptionInterval = 24 * time.Hour
	creditResetInterval  = 24 * time.Hour
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[startup] no .env file, relying on environment")
	}

	db, err := conn.NewMySQL()
	if err != nil {
		log.Fatalf("[startup] database connection failed: %v", err)
	}
	migrations.Init(db)
	if err := migrations.Migrate(); err != nil {
		log.Fatalf("[startup] migrations failed: %v", err)
	}
	if err := migrations.SeedFeatures(); err != nil {
		log.Printf("[startup] feature seed failed: %v", err)
	}

	creditLedger := credits.NewService(credits.NewRepository(db))
	subsRepo := subscriptions.NewRepository(db)
	paymentRepo := payments.NewRepository(db)
	sessionMgr := sessions.NewManager(db)
	featureGate := gate.New(subsRepo, creditLedger)
	ai := openai.NewClient()

	provider := pickProvider()
	paymentSvc := payments.NewService(paymentRepo, subsRepo, provider, payments.UPIConfigFromEnv())

	r := gin.Default()
	credits.NewHandler(creditLedger).RegisterRoutes(r)
	subscriptions.NewHandler(subsRepo).RegisterRoutes(r)
	payments.NewHandler(paymentSvc, razorpayProvider(provider), stripeProvider(provider)).RegisterRoutes(r)
	sessions.NewHandler(sessionMgr).RegisterRoutes(r)
	tutor.NewHandler(featureGate, sessionMgr, ai).RegisterRoutes(r)

	r.GET("/features", func(c *gin.Context) {
		features, err := migrations.ListActiveFeatures()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, features)
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	go runSweeps(sessionMgr, subsRepo, creditLedger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("[startup] server stopped: %v", err)
	}
}

// pickProvider honors PAYMENT_PROVIDER; the manual UPI flow needs no provider
// at all, so a missing key just logs and falls through to nil.
func pickProvider() payments.Provider {
	switch os.Getenv("PAYMENT_PROVIDER") {
	case "stripe":
		if p := payments.NewStripeFromEnv(); p != nil {
			return p
		}
		log.Printf("[startup] PAYMENT_PROVIDER=stripe but STRIPE_SECRET_KEY unset, falling back to manual UPI")
	case "razorpay", "":
		if p := payments.NewRazorpayFromEnv(); p != nil {
			return p
		}
		log.Printf("[startup] razorpay keys unset, falling back to manual UPI")
	}
	return nil
}

func razorpayProvider(p payments.Provider) *payments.RazorpayProvider {
	rz, _ := p.(*payments.RazorpayProvider)
	return rz
}

func stripeProvider(p payments.Provider) *payments.StripeProvider {
	st, _ := p.(*payments.StripeProvider)
	return st
}

// runSweeps drives the periodic maintenance passes: stale-session reaping,
// lapsed-subscription expiry and the daily credit reset. Each tick is
// independent; a failed pass logs and waits for the next interval.
func runSweeps(sessionMgr *sessions.Manager, subsRepo *subscriptions.Repository, creditLedger *credits.Service) {
	sessionTicker := time.NewTicker(sessionReapInterval)
	subsTicker := time.NewTicker(subscriptionInterval)
	creditTicker := time.NewTicker(creditResetInterval)
	for {
		select {
		case <-sessionTicker.C:
			if _, err := sessionMgr.ReapStale(); err != nil {
				log.Printf("[sweep][sessions] err=%v", err)
			}
		case <-subsTicker.C:
			expired, err := subsRepo.SweepExpired()
			if err != nil {
				log.Printf("[sweep][subscriptions] err=%v", err)
			} else if len(expired) > 0 {
				log.Printf("[sweep][subscriptions] expired=%d", len(expired))
			}
		case <-creditTicker.C:
			count, err := creditLedger.ResetAll()
			if err != nil {
				log.Printf("[sweep][credits] err=%v", err)
			} else if count > 0 {
				log.Printf("[sweep][credits] reset=%d", count)
			}
		}
	}
}
