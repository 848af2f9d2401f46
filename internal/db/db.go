// Package db handles the database connection, schema migration and seeding.
package db

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/internal/models"
)

// Connect opens the PostgreSQL connection with a simple retry loop to give
// the database time to start.
func Connect(dsn string) (*gorm.DB, error) {
	var conn *gorm.DB
	var err error
	for i := 0; i < 5; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return conn, nil
		}
		log.Printf("database connection attempt %d/5 failed, retrying...", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("database connection failed: %w", err)
}

// Migrate applies the GORM schema migrations.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Fiche{},
		&models.RefStructure{},
		&models.RefResultat{},
		&models.RefIndicateur{},
		&models.RefSourceVerif{},
		&models.RefProduit{},
		&models.RefSourceFinance{},
	)
}

// Seed loads the referential tables and, when credentials are configured,
// ensures an admin account exists.
func Seed(conn *gorm.DB, adminEmail, adminPassword string) error {
	if err := SeedReferentiels(conn); err != nil {
		return err
	}
	if adminEmail != "" && adminPassword != "" {
		if err := EnsureAdmin(conn, adminEmail, adminPassword); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAdmin creates the admin account or promotes the existing user with
// that email.
func EnsureAdmin(conn *gorm.DB, email, password string) error {
	var user models.User
	err := conn.First(&user, "email = ?", email).Error
	if err == nil {
		if user.Role == models.RoleAdmin {
			return nil
		}
		return conn.Model(&user).Update("role", models.RoleAdmin).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return conn.Create(&models.User{
		Email:    email,
		FullName: "Administrateur",
		Password: string(hash),
		Role:     models.RoleAdmin,
	}).Error
}

// SeedReferentiels populates the referential tables. FirstOrCreate keeps the
// seed idempotent across restarts.
func SeedReferentiels(conn *gorm.DB) error {
	structures := []models.RefStructure{
		{Code: "01", Structures: "Institut National de la Statistique", Abreviation: ptr("INSTAT")},
		{Code: "02", Structures: "Direction Régionale de la Planification", Abreviation: ptr("DRPSIAP")},
		{Code: "03", Structures: "Cellule de Planification et de Statistique", Abreviation: ptr("CPS")},
		{Code: "04", Structures: "Direction Nationale de la Population", Abreviation: ptr("DNP")},
	}
	for _, s := range structures {
		if err := conn.Where("code = ?", s.Code).FirstOrCreate(&s).Error; err != nil {
			return err
		}
	}

	if err := seedItems(conn, &models.RefResultat{}, []models.RefItem{
		{Code: "1.1", Libelle: "Production statistique renforcée"},
		{Code: "1.2", Libelle: "Diffusion des données améliorée"},
		{Code: "2.1", Libelle: "Capacités institutionnelles développées"},
	}); err != nil {
		return err
	}
	if err := seedItems(conn, &models.RefIndicateur{}, []models.RefItem{
		{Code: "I-01", Libelle: "Taux de réponse aux enquêtes"},
		{Code: "I-02", Libelle: "Nombre de publications statistiques"},
	}); err != nil {
		return err
	}
	if err := seedItems(conn, &models.RefSourceVerif{}, []models.RefItem{
		{Code: "1", Libelle: "Rapport d'activité"},
		{Code: "2", Libelle: "Publication officielle"},
		{Code: "3", Libelle: "Base de données"},
	}); err != nil {
		return err
	}
	if err := seedItems(conn, &models.RefProduit{}, []models.RefItem{
		{Code: "1", Libelle: "Annuaire statistique"},
		{Code: "2", Libelle: "Rapport d'enquête"},
		{Code: "3", Libelle: "Tableau de bord"},
	}); err != nil {
		return err
	}
	return seedItems(conn, &models.RefSourceFinance{}, []models.RefItem{
		{Code: "1", Libelle: "Budget national"},
		{Code: "2", Libelle: "Partenaires techniques et financiers"},
		{Code: "3", Libelle: "Autre"},
	})
}

func seedItems[T any](conn *gorm.DB, model *T, items []models.RefItem) error {
	for _, item := range items {
		row := *model
		if err := conn.Model(model).Where("code = ?", item.Code).
			FirstOrCreate(&row, map[string]any{"code": item.Code, "libelle": item.Libelle}).Error; err != nil {
			return err
		}
	}
	return nil
}

func ptr(s string) *string { return &s }
