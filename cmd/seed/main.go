package main

import (
	"log"
	"os"

	"perspectives-be/internal/model"
	"perspectives-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Seeds a demo project with a handful of documents across three obvious
// topics plus some noise, enough for a first CREATE_ASPECT run to produce
// visible clusters.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	projectId := uuid.New()
	color.Cyan("Seeding demo project %s", projectId)

	seedDocuments(db, projectId)

	color.Green("✅ Success: demo project seeded. Set PROJECT_ID=%s to use it.", projectId)
}

func seedDocuments(db *gorm.DB, projectId uuid.UUID) {
	docs := []struct {
		Filename string
		Content  string
	}{
		{"football.txt", "The home team scored twice in the second half and secured the championship title after a dramatic penalty shootout."},
		{"tennis.txt", "She won the grand slam final in straight sets, serving fourteen aces against the defending champion."},
		{"cycling.txt", "The peloton crossed the alpine pass before the sprinters contested a chaotic finish on the boulevard."},
		{"stocks.txt", "Markets rallied after the central bank signaled slower rate hikes, with tech shares leading the gains."},
		{"earnings.txt", "The company reported quarterly earnings above expectations and raised its full-year revenue guidance."},
		{"merger.txt", "Shareholders approved the merger, creating one of the largest logistics groups on the continent."},
		{"pasta.txt", "Cook the pasta until al dente, then toss it with garlic, olive oil, chili flakes and fresh parsley."},
		{"bread.txt", "Knead the dough for ten minutes, let it rise overnight, and bake on a preheated stone for a crisp crust."},
		{"soup.txt", "Simmer the roasted pumpkin with onion and stock, then blend until smooth and finish with cream."},
		{"misc.txt", "Reminder: pick up the dry cleaning on Thursday and call the landlord about the heating."},
	}

	taggedTag := uuid.New()
	color.Yellow("Tag for sports documents: %s", taggedTag)

	for i, doc := range docs {
		sdoc := model.SourceDocument{
			Id:        uuid.New(),
			ProjectId: projectId,
			Filename:  doc.Filename,
			Content:   doc.Content,
			Modality:  "text",
		}
		if err := db.Create(&sdoc).Error; err != nil {
			log.Fatalf("Error: failed to seed document %s: %v", doc.Filename, err)
		}

		// First three documents are the sports topic; tag them so tag-scoped
		// aspects have something to select.
		if i < 3 {
			tag := model.SourceDocumentTag{SdocId: sdoc.Id, TagId: taggedTag}
			if err := db.Create(&tag).Error; err != nil {
				log.Fatalf("Error: failed to tag document %s: %v", doc.Filename, err)
			}
		}

		color.White("  seeded %s", doc.Filename)
	}
}
