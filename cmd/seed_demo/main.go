package main

import (
	"context"
	"errors"
	"log"

	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/config"
	"github.com/xelth-com/centerhub/internal/database"
	"github.com/xelth-com/centerhub/internal/logger"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/records"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

type demoCenter struct {
	in        records.CenterInput
	techs     []string
	customers []models.Customer
}

var demoCenters = []demoCenter{
	{
		in: records.CenterInput{
			ID: "center-riyadh-001", Name: "Riyadh Main Center", Email: "riyadh@sokany.com", Password: "riyadh123",
			ManagerName: "Ahmed Al-Saadi", Address: "Riyadh, King Fahd district", Phone: "+966-11-1234567",
		},
		techs:     []string{"Khalid Al-Qahtani", "Fahad Al-Otaibi"},
		customers: []models.Customer{{Name: "Al-Noor Electronics", Type: models.CustomerDistributor}, {Name: "Sultan Al-Harbi"}},
	},
	{
		in: records.CenterInput{
			ID: "center-jeddah-002", Name: "Jeddah Commercial Center", Email: "jeddah@sokany.com", Password: "jeddah123",
			ManagerName: "Sara Al-Harthi", Address: "Jeddah, Tahlia street", Phone: "+966-12-9876543",
		},
		techs:     []string{"Omar Bakr"},
		customers: []models.Customer{{Name: "Red Sea Trading", Type: models.CustomerDistributor}, {Name: "Huda Al-Zahrani"}},
	},
	{
		in: records.CenterInput{
			ID: "center-dammam-003", Name: "Dammam Eastern Center", Email: "dammam@sokany.com", Password: "dammam123",
			ManagerName: "Mohammed Al-Otaibi", Address: "Dammam, Eastern Corniche", Phone: "+966-13-5555555",
		},
		techs:     []string{"Yousef Al-Dossary"},
		customers: []models.Customer{{Name: "Nasser Al-Shammari"}},
	},
}

var demoInventory = []models.InventoryItem{
	{Name: "Main control board", Quantity: 25, Price: 350, Note: "fits all device models"},
	{Name: "Capacitor 450V", Quantity: 50, Price: 25, Note: "air conditioners and fridges"},
	{Name: "AC compressor 1.5 HP", Quantity: 8, Price: 1200, Note: "one year warranty"},
	{Name: "Indoor cooling fan", Quantity: 30, Price: 80, Note: "all sizes"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.Log.Level, "console", "centerhub-seed")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(store.Models()...); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	ctx := context.Background()
	st := store.NewGorm(db.DB)
	deps := records.Deps{
		Centers:  st.Centers,
		Recorder: activity.NewLogger(st.Activities, zlog.Named("activity")),
	}
	centers := records.NewCenters(deps)
	techs := records.NewTechnicians(st.Technicians, deps)
	customers := records.NewCustomers(st.Customers, deps)
	inventory := records.NewInventory(st.Inventory, deps)

	admin := auth.Principal{Role: auth.RoleAdmin, UserID: "admin", Name: "seed"}

	for _, dc := range demoCenters {
		_, err := st.Centers.GetCenter(ctx, dc.in.ID)
		switch {
		case err == nil:
			zlog.Info("center already seeded", zap.String("center_id", dc.in.ID))
			continue
		case !errors.Is(err, store.ErrNotFound):
			zlog.Fatal("failed to look up center", zap.String("center_id", dc.in.ID), zap.Error(err))
		}

		c, err := centers.Create(ctx, admin, dc.in)
		if err != nil {
			zlog.Fatal("failed to create center", zap.String("center_id", dc.in.ID), zap.Error(err))
		}

		for _, name := range dc.techs {
			if _, err := techs.Create(ctx, admin, models.Technician{CenterID: c.ID, Name: name}); err != nil {
				zlog.Fatal("failed to create technician", zap.Error(err))
			}
		}
		for _, cu := range dc.customers {
			cu.CenterID = c.ID
			if _, err := customers.Create(ctx, admin, cu); err != nil {
				zlog.Fatal("failed to create customer", zap.Error(err))
			}
		}
		for _, item := range demoInventory {
			item.CenterID = c.ID
			if _, err := inventory.Create(ctx, admin, item); err != nil {
				zlog.Fatal("failed to create inventory item", zap.Error(err))
			}
		}
		zlog.Info("center seeded", zap.String("center_id", c.ID), zap.String("email", c.Email))
	}
	zlog.Info("demo data ready")
}
