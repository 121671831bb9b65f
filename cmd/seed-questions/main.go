package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/database"
	"github.com/prepdeck/prepdeck-backend/internal/logger"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
)

type seedQuestion struct {
	text        string
	options     []string
	correct     int
	explanation string
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	topicRepo := repository.NewTopicRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Topics and Questions ===")

	banks := map[string][]seedQuestion{
		"Quantitative Aptitude": {
			{"What is 15% of 240?", []string{"30", "36", "42", "48"}, 1, "240 * 0.15 = 36."},
			{"A train covers 180 km in 3 hours. What is its average speed?", []string{"45 km/h", "50 km/h", "60 km/h", "90 km/h"}, 2, "180 / 3 = 60 km/h."},
			{"If x + 7 = 19, what is x?", []string{"10", "11", "12", "13"}, 2, "x = 19 - 7 = 12."},
			{"What is the next number in the series 2, 6, 18, 54, ...?", []string{"108", "126", "162", "216"}, 2, "Each term is multiplied by 3; 54 * 3 = 162."},
			{"The average of 12, 18, and 24 is:", []string{"16", "17", "18", "20"}, 2, "(12 + 18 + 24) / 3 = 18."},
		},
		"Logical Reasoning": {
			{"All roses are flowers. Some flowers fade quickly. Which conclusion follows?", []string{"All roses fade quickly", "Some roses fade quickly", "No rose fades quickly", "None of the above"}, 3, "The premises do not link roses to fading."},
			{"Which word does not belong: apple, banana, carrot, mango?", []string{"Apple", "Banana", "Carrot", "Mango"}, 2, "Carrot is a vegetable; the rest are fruits."},
			{"If CODING is written as DPEJOH, how is FLOWER written?", []string{"GMPXFS", "GMPWFS", "GKNVDQ", "GMPXFQ"}, 0, "Each letter shifts forward by one."},
			{"Pointing to a man, Ravi said 'He is my mother's only son.' Who is the man?", []string{"Ravi's father", "Ravi himself", "Ravi's uncle", "Ravi's brother"}, 1, "The only son of Ravi's mother is Ravi."},
		},
		"General Awareness": {
			{"Which planet is known as the Red Planet?", []string{"Venus", "Jupiter", "Mars", "Saturn"}, 2, "Iron oxide gives Mars its reddish appearance."},
			{"Who wrote the play 'Hamlet'?", []string{"Charles Dickens", "William Shakespeare", "Leo Tolstoy", "Mark Twain"}, 1, ""},
			{"What is the chemical symbol for gold?", []string{"Gd", "Go", "Au", "Ag"}, 2, "From the Latin 'aurum'."},
		},
	}

	totalSeeded := 0
	for topicName, bank := range banks {
		var topicID int
		err := pool.QueryRow(ctx, "SELECT id FROM topics WHERE name = $1", topicName).Scan(&topicID)
		if err != nil {
			if err == pgx.ErrNoRows {
				topic := &model.Topic{Name: topicName, Description: "Seeded bank for " + topicName}
				if err := topicRepo.Create(ctx, topic); err != nil {
					log.Fatal().Err(err).Str("topic", topicName).Msg("Failed to create topic")
				}
				topicID = topic.ID
				fmt.Printf("Created topic %q with ID: %d\n", topicName, topicID)
			} else {
				log.Fatal().Err(err).Msg("Failed to check existing topic")
			}
		} else {
			fmt.Printf("Found existing topic %q with ID: %d\n", topicName, topicID)
		}

		questions := make([]model.Question, 0, len(bank))
		for _, sq := range bank {
			questions = append(questions, model.Question{
				TopicID:       topicID,
				Text:          sq.text,
				Options:       sq.options,
				CorrectOption: sq.correct,
				Explanation:   sq.explanation,
			})
		}
		if err := questionRepo.CreateBatch(ctx, questions); err != nil {
			fmt.Printf("Error seeding questions for %q: %v\n", topicName, err)
			continue
		}
		totalSeeded += len(questions)
		fmt.Printf("Seeded %d questions into %q\n", len(questions), topicName)
	}

	fmt.Printf("\nSeed completed! Added %d questions across %d topics.\n", totalSeeded, len(banks))
}
