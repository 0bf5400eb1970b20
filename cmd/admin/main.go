// Command admin is the operator console for the exam sync database. It covers
// the manual tasks the HTTP surface does not: inspecting duplicates, resolving
// career mappings, mapping sectors and seeding classrooms.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"examsync/internal/config"
	"examsync/internal/store"
	"examsync/internal/store/postgres"
	"examsync/internal/totem"
)

func main() {
	if err := godotenv.Overload(); err == nil {
		log.Println("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	st := postgres.New(pool)
	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("initialize schema: %v", err)
	}

	guard := totem.NewUpsertGuard(st)
	resolver := totem.NewResolver(st)

	for {
		displayMenu()
		switch readChoice() {
		case "1":
			displayStats(ctx, st)
		case "2":
			displayDuplicateGroups(ctx, guard)
		case "3":
			runReconcile(ctx, guard)
		case "4":
			displayUnmappedSectors(ctx, resolver)
		case "5":
			createSectorMapping(ctx, st, resolver)
		case "6":
			displayUnresolvedCareers(ctx, st)
		case "7":
			resolveCareerMapping(ctx, st)
		case "8":
			displayUnassignedExams(ctx, st)
		case "9":
			seedClassroom(ctx, st)
		case "10":
			color.Green("Bye.")
			return
		default:
			color.Red("Invalid choice. Please try again.")
		}
	}
}

func displayMenu() {
	color.Cyan("\n=== Exam Scheduling Sync Console ===")
	fmt.Println("1. Show statistics")
	fmt.Println("2. List duplicate exam groups")
	fmt.Println("3. Reconcile duplicates")
	fmt.Println("4. List unmapped sectors")
	fmt.Println("5. Create sector mapping")
	fmt.Println("6. List unresolved career mappings")
	fmt.Println("7. Resolve career mapping")
	fmt.Println("8. List unassigned exams")
	fmt.Println("9. Seed classroom")
	fmt.Println("10. Exit")
	fmt.Print("\nEnter your choice (1-10): ")
}

func displayStats(ctx context.Context, st store.Store) {
	stats, err := st.Stats(ctx)
	if err != nil {
		log.Printf("Error loading stats: %v", err)
		return
	}

	color.Yellow("\nDatabase Statistics")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Sheet snapshots", strconv.Itoa(stats.Snapshots)})
	table.Append([]string{"Exams", strconv.Itoa(stats.Exams)})
	table.Append([]string{"Unmapped sectors", strconv.Itoa(len(stats.UnmappedSectors))})
	table.Append([]string{"Unresolved careers", strconv.Itoa(len(stats.UnresolvedCareers))})
	table.Render()
}

func displayDuplicateGroups(ctx context.Context, guard *totem.UpsertGuard) {
	groups, err := guard.DuplicateGroups(ctx)
	if err != nil {
		log.Printf("Error listing duplicate groups: %v", err)
		return
	}
	if len(groups) == 0 {
		color.Green("No duplicate exam groups found.")
		return
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	color.Yellow("\nDuplicate Exam Groups")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Group", "Exam IDs", "Extra Records"})
	for _, k := range keys {
		ids := groups[k]
		idStrs := make([]string, len(ids))
		for i, id := range ids {
			idStrs[i] = strconv.Itoa(id)
		}
		table.Append([]string{k, strings.Join(idStrs, ", "), strconv.Itoa(len(ids) - 1)})
	}
	table.Render()
}

func runReconcile(ctx context.Context, guard *totem.UpsertGuard) {
	fmt.Print("This deletes duplicate exam records, keeping the oldest of each group. Continue? [y/N]: ")
	if !strings.EqualFold(readString(), "y") {
		color.Yellow("Aborted.")
		return
	}

	result, err := guard.Reconcile(ctx)
	if err != nil {
		log.Printf("Error reconciling: %v", err)
		return
	}
	color.Green("Reconciled %d groups, deleted %d records.", result.GroupsFound, result.RecordsDeleted)
}

func displayUnmappedSectors(ctx context.Context, resolver *totem.Resolver) {
	sectors, err := resolver.UnmappedSectors(ctx)
	if err != nil {
		log.Printf("Error listing unmapped sectors: %v", err)
		return
	}
	if len(sectors) == 0 {
		color.Green("All seen sectors are mapped.")
		return
	}

	color.Yellow("\nUnmapped Sectors (seen in sheets, no faculty mapping)")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Sector"})
	for _, s := range sectors {
		table.Append([]string{s})
	}
	table.Render()
}

func createSectorMapping(ctx context.Context, st store.Store, resolver *totem.Resolver) {
	faculties, err := st.ListFaculties(ctx)
	if err != nil {
		log.Printf("Error listing faculties: %v", err)
		return
	}

	color.Yellow("\nFaculties")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Active"})
	for _, f := range faculties {
		table.Append([]string{strconv.Itoa(f.ID), f.Name, strconv.FormatBool(f.Active)})
	}
	table.Render()

	fmt.Print("Sector code: ")
	sector := readString()
	fmt.Print("Faculty ID: ")
	facultyID, err := strconv.Atoi(readString())
	if err != nil || sector == "" {
		color.Red("Sector and a numeric faculty ID are required.")
		return
	}

	m, err := resolver.CreateSectorMapping(ctx, sector, facultyID)
	if err != nil {
		log.Printf("Error creating sector mapping: %v", err)
		return
	}
	color.Green("Sector %q mapped to faculty %d (mapping id %d).", m.Sector, m.FacultyID, m.ID)
}

func displayUnresolvedCareers(ctx context.Context, st store.Store) {
	mappings, err := st.ListUnresolvedCareerMappings(ctx)
	if err != nil {
		log.Printf("Error listing unresolved careers: %v", err)
		return
	}
	if len(mappings) == 0 {
		color.Green("No unresolved career mappings.")
		return
	}

	color.Yellow("\nUnresolved Career Mappings")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "External Code", "Display Name"})
	for _, m := range mappings {
		table.Append([]string{strconv.Itoa(m.ID), m.ExternalCode, m.DisplayName})
	}
	table.Render()
}

func resolveCareerMapping(ctx context.Context, st store.Store) {
	fmt.Print("External career code: ")
	code := readString()
	fmt.Print("Local career ID: ")
	careerID, err := strconv.Atoi(readString())
	if err != nil || code == "" {
		color.Red("A code and a numeric career ID are required.")
		return
	}

	if _, err := st.CareerByID(ctx, careerID); err != nil {
		log.Printf("Error: career %d not found: %v", careerID, err)
		return
	}

	m, err := st.ResolveCareerMapping(ctx, code, careerID)
	if err != nil {
		log.Printf("Error resolving mapping: %v", err)
		return
	}
	color.Green("Mapping %q resolved to career %d.", m.ExternalCode, careerID)
}

func displayUnassignedExams(ctx context.Context, st store.Store) {
	exams, err := st.ListUnassignedExams(ctx)
	if err != nil {
		log.Printf("Error listing unassigned exams: %v", err)
		return
	}
	if len(exams) == 0 {
		color.Green("Every exam has a classroom.")
		return
	}

	color.Yellow("\nExams Without a Classroom")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Subject", "Date", "Time"})
	for _, e := range exams {
		timeStr := "-"
		if e.Time != nil {
			timeStr = e.Time.String()
		}
		table.Append([]string{
			strconv.Itoa(e.ID),
			e.SubjectName,
			e.Date.Format("2006-01-02"),
			timeStr,
		})
	}
	table.Render()
}

func seedClassroom(ctx context.Context, st store.Store) {
	fmt.Print("Classroom name: ")
	name := readString()
	fmt.Print("Capacity: ")
	capacity, err := strconv.Atoi(readString())
	if err != nil || name == "" {
		color.Red("A name and a numeric capacity are required.")
		return
	}
	fmt.Print("Location (optional): ")
	location := readString()

	c, err := st.EnsureClassroom(ctx, store.Classroom{
		Name:      name,
		Capacity:  capacity,
		Location:  location,
		Available: true,
	})
	if err != nil {
		log.Printf("Error creating classroom: %v", err)
		return
	}
	color.Green("Classroom %q ready (id %d, capacity %d).", c.Name, c.ID, c.Capacity)
}

func readChoice() string {
	var input string
	fmt.Scanln(&input)
	return strings.TrimSpace(input)
}

func readString() string {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}
