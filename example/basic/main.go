package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/siherrmann/kbrag"
	"github.com/siherrmann/kbrag/helper"
)

const sampleKnowledge = `
CREATE TABLE IF NOT EXISTS view_rpa_manuals (
	chunk_id INTEGER, chunk_content TEXT, topic TEXT, section TEXT,
	document_title TEXT, data_type TEXT, step_number INTEGER, fund_abbr TEXT,
	category_main TEXT, category_sub TEXT
);
INSERT INTO view_rpa_manuals VALUES
	(1, 'เข้าเว็บไซต์ระบบแล้วกดปุ่ม เข้าสู่ระบบ มุมขวาบน', 'เข้าสู่ระบบ', 'บทที่ 1', 'คู่มือการใช้งานระบบ', 'guide', 1, NULL, 'ระบบ', 'บัญชีผู้ใช้'),
	(2, 'กรอกชื่อผู้ใช้และรหัสผ่านแล้วกดยืนยัน', 'เข้าสู่ระบบ', 'บทที่ 1', 'คู่มือการใช้งานระบบ', 'guide', 2, NULL, 'ระบบ', 'บัญชีผู้ใช้'),
	(3, 'เลือกเมนู ยื่นข้อเสนอโครงการ แล้วแนบไฟล์ข้อเสนอ', 'ยื่นข้อเสนอโครงการ', 'บทที่ 2', 'คู่มือการยื่นข้อเสนอ', 'guide', 1, 'NRCT', 'โครงการ', 'ข้อเสนอ');

CREATE TABLE IF NOT EXISTS research_funds (
	status TEXT, fund_abbr TEXT, fund_name_th TEXT, fund_name_en TEXT,
	fiscal_year INTEGER, source_agency TEXT, start_period TEXT, end_period TEXT
);
INSERT INTO research_funds VALUES
	('Y', 'NRCT', 'ทุนวิจัยแห่งชาติ', 'National Research Fund', 2568, 'วช.', 'ม.ค. 2568', 'มี.ค. 2568');

CREATE TABLE IF NOT EXISTS glossary_terms (word TEXT, meaning TEXT, word_type TEXT);
INSERT INTO glossary_terms VALUES
	('TOR', 'ขอบเขตของงานที่ผู้รับทุนต้องดำเนินการ', 'คำย่อ');
`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	k, err := kbrag.NewKbrag(dbConfig, nil)
	if err != nil {
		log.Fatalf("Failed to create kbrag: %v", err)
	}
	defer k.Close()

	if _, err := k.DB.Instance.Exec(sampleKnowledge); err != nil {
		log.Fatalf("Failed to create sample knowledge: %v", err)
	}

	// Remote provider if EMBED_URL is set, local model otherwise
	if err := k.UseConfiguredEmbedder(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()
	snapshot, err := k.Refresh(ctx, false)
	if err != nil {
		log.Fatalf("Failed to build corpus: %v", err)
	}
	fmt.Printf("Corpus %s ready with %d items (%d embedded)\n", snapshot.Version[:12], snapshot.Len(), snapshot.Embedded())

	question := color.New(color.FgCyan, color.Bold)
	source := color.New(color.FgGreen)
	muted := color.New(color.FgHiBlack)

	sessionID := uuid.NewString()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		question.Print("\nถาม> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		answer, err := k.Ask(ctx, text)
		if err != nil {
			color.Red("Failed to answer: %v", err)
			continue
		}

		if !answer.HasContext {
			color.Yellow("%s", answer.Message)
		} else {
			for i, result := range answer.Results {
				muted.Printf("%d. [%s] %.2f %s\n", i+1, result.Item.Type, result.Score, result.Item.ID)
			}
			fmt.Println(answer.Context)
		}
		if answer.Citation != "" {
			source.Printf("แหล่งข้อมูล: %s (%s)\n", answer.Citation, answer.Trace.Rule)
		}

		if _, err := k.SaveChatLog(ctx, sessionID, answer, answer.Context); err != nil {
			color.Red("Failed to save chat log: %v", err)
		}
	}
}
