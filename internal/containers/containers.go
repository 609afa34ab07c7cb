// Package containers starts the dockerized petition stack for integration
// testing: a MariaDB instance with the petition schema, an optional
// Authorizer instance, and the petitiond image itself.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localrally/petitiond/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PetitionContainers holds the running stack so callers can tear it down.
type PetitionContainers struct {
	Network             *testcontainers.DockerNetwork
	DBContainer         testcontainers.Container
	AuthorizerContainer testcontainers.Container
	ServiceContainer    testcontainers.Container
	BuilderContainer    testcontainers.Container
}

// Terminate stops every container that was started, in reverse order.
func (pc *PetitionContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if pc.ServiceContainer != nil {
		if err := pc.ServiceContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate petitiond: %v", err)
		}
	}
	if pc.BuilderContainer != nil {
		if err := pc.BuilderContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate petitiond builder: %v", err)
		}
	}
	if pc.AuthorizerContainer != nil {
		if err := pc.AuthorizerContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Authorizer: %v", err)
		}
	}
	if pc.DBContainer != nil {
		if err := pc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MariaDB: %v", err)
		}
	}
	if pc.Network != nil {
		if err := pc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateDB starts the database tier only: a docker network and a MariaDB
// container with the petition schema and reference data loaded. Pass a
// nil *testing.T to run standalone.
func CreateDB(t *testing.T) (*PetitionContainers, error) {
	ctx := context.Background()
	stack := &PetitionContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	stack.Network = nw
	networkName := nw.Name

	// Create and start the MariaDB container
	dbNetworkName := os.Getenv("DB_HOST")
	tcpDbPort, err := nat.NewPort("tcp", os.Getenv("DB_PORT"))
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to create DB port")
	}
	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{string(tcpDbPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": os.Getenv("DB_ROOT_PASSWORD"),
				"MYSQL_DATABASE":      os.Getenv("DB_DATABASE"),
				"MYSQL_USER":          os.Getenv("DB_USER"),
				"MYSQL_PASSWORD":      os.Getenv("DB_PASSWORD"),
			},
			WaitingFor: wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {dbNetworkName},
			},
		},
		Started: true,
	})
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to start MariaDB")
	}
	stack.DBContainer = dbContainer

	dbHost, _ := dbContainer.Host(ctx)
	dbPort, _ := dbContainer.MappedPort(ctx, tcpDbPort)
	if err := initPetitionDB(dbHost, dbPort); err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to initialize database")
	}
	return stack, nil
}

// CreateAll starts the full stack from environment variables. Pass a nil
// *testing.T to run standalone from cmd/testcontainers.
func CreateAll(t *testing.T) (*PetitionContainers, error) {
	ctx := context.Background()

	stack, err := CreateDB(t)
	if err != nil {
		return nil, err
	}
	networkName := stack.Network.Name
	dbNetworkName := os.Getenv("DB_HOST")

	// Optional Authorizer container; without AUTHZ_IMAGE the service
	// falls back to X-Authorization token credentials.
	authzURL := ""
	if os.Getenv("AUTHZ_IMAGE") != "" {
		authzNetworkName := "authorizer"
		if err := startAuthorizer(ctx, stack, networkName, authzNetworkName, dbNetworkName); err != nil {
			stack.Terminate(t)
			exitWithError(t, err, "Failed to start Authorizer")
		}
		authzURL = fmt.Sprintf("http://%s:%s", authzNetworkName, os.Getenv("AUTHZ_PORT"))
	}

	imageName := "petitiond-test:latest"
	exists, err := imageExists(ctx, imageName)
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to check if image exists")
	}

	servicePortNumber := os.Getenv("PORT")
	tcpServicePort, err := nat.NewPort("tcp", servicePortNumber)
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to create petitiond port")
	}

	serviceRequest := testcontainers.ContainerRequest{
		ExposedPorts: []string{string(tcpServicePort)},
		Env: map[string]string{
			"DB_TYPE":             "mariadb",
			"DB_HOST":             dbNetworkName,
			"DB_PORT":             os.Getenv("DB_PORT"),
			"DB_DATABASE":         os.Getenv("DB_DATABASE"),
			"DB_USER":             os.Getenv("DB_USER"),
			"DB_PASSWORD":         os.Getenv("DB_PASSWORD"),
			"DB_CONNECTION_LIMIT": os.Getenv("DB_CONNECTION_LIMIT"),
			"AUTHZ_URL":           authzURL,
			"AUTHZ_CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
			"PORT":                servicePortNumber,
		},
		WaitingFor: wait.ForHTTP("/metrics").WithPort(tcpServicePort).WithStartupTimeout(30 * time.Second),
		Networks:   []string{networkName},
	}

	if !exists {
		logMessage(t, "Image %s does not exist, building...", imageName)
		if err := buildServiceImage(ctx, stack, &serviceRequest, imageName); err != nil {
			stack.Terminate(t)
			exitWithError(t, err, "Failed to build petitiond image")
		}
	} else {
		logMessage(t, "Image %s exists, reusing...", imageName)
		serviceRequest.Image = imageName
	}

	serviceContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: serviceRequest,
		Started:          true,
	})
	if err != nil {
		stack.Terminate(t)
		exitWithError(t, err, "Failed to start petitiond")
	}
	stack.ServiceContainer = serviceContainer

	serviceHost, _ := serviceContainer.Host(ctx)
	servicePort, _ := serviceContainer.MappedPort(ctx, tcpServicePort)
	logMessage(t, "BASE_URL=%s:%s", serviceHost, servicePort.Port())

	logMessage(t, "petitiond testcontainer stack started successfully")
	return stack, nil
}

func startAuthorizer(ctx context.Context, stack *PetitionContainers, networkName, authzNetworkName, dbNetworkName string) error {
	tcpAuthzPort, err := nat.NewPort("tcp", os.Getenv("AUTHZ_PORT"))
	if err != nil {
		return err
	}
	authzDbConnection := fmt.Sprintf("root:%s@tcp(%s:%s)/%s",
		os.Getenv("DB_ROOT_PASSWORD"), dbNetworkName, os.Getenv("DB_PORT"), os.Getenv("AUTHZ_DATABASE"))
	authorizerContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("AUTHZ_IMAGE"),
			ExposedPorts: []string{string(tcpAuthzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
				"PORT":          os.Getenv("AUTHZ_PORT"),
				"DATABASE_TYPE": "mariadb",
				"DATABASE_NAME": os.Getenv("AUTHZ_DATABASE"),
				"DATABASE_URL":  authzDbConnection,
				"ADMIN_SECRET":  os.Getenv("AUTHZ_ADMIN_SECRET"),
				"ROLES":         "user",
				"DEFAULT_ROLES": "user",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(10 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {authzNetworkName},
			},
		},
		Started: true,
	})
	if err != nil {
		return err
	}
	stack.AuthorizerContainer = authorizerContainer
	return nil
}

func buildServiceImage(ctx context.Context, stack *PetitionContainers, serviceRequest *testcontainers.ContainerRequest, imageName string) error {
	reaperSessionID := uuid.New().String()
	buildArgs := map[string]*string{
		"RESOURCE_REAPER_SESSION_ID": &reaperSessionID,
	}

	buildContext := os.Getenv("TESTCONTAINERS_BUILD_CONTEXT")
	if buildContext == "" {
		buildContext = "../.."
	}

	builderContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    buildContext,
				Dockerfile: "Dockerfile",
				Repo:       "petitiond-test-builder",
				Tag:        "latest",
				BuildArgs:  buildArgs,
				BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
					opts.Target = "builder"
				},
				PrintBuildLog: true,
			},
		},
		Started: false,
	})
	if err != nil {
		return err
	}
	stack.BuilderContainer = builderContainer

	imageNameParts := strings.Split(imageName, ":")
	serviceRequest.FromDockerfile = testcontainers.FromDockerfile{
		Context:    buildContext,
		Dockerfile: "Dockerfile",
		Repo:       imageNameParts[0],
		Tag:        imageNameParts[1],
		KeepImage:  true,
		BuildArgs:  buildArgs,
		BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
			opts.Target = "runtime"
		},
		PrintBuildLog: true,
	}
	return nil
}

// initPetitionDB creates the schema and reference data through the root
// account once the container accepts connections.
func initPetitionDB(dbHost string, dbPort nat.Port) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", os.Getenv("DB_ROOT_PASSWORD"), dbHost, dbPort.Port()))
	if err != nil {
		return err
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	database := os.Getenv("DB_DATABASE")
	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)); err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}
	if authzDB := os.Getenv("AUTHZ_DATABASE"); authzDB != "" {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", authzDB)); err != nil {
			return fmt.Errorf("create database %s: %w", authzDB, err)
		}
	}
	user := os.Getenv("DB_USER")
	if _, err := db.Exec(fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", user, os.Getenv("DB_PASSWORD"))); err != nil {
		return fmt.Errorf("create user %s: %w", user, err)
	}
	if _, err := db.Exec(fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO '%s'@'%%'", database, user)); err != nil {
		return fmt.Errorf("grant privileges to %s: %w", user, err)
	}
	if _, err := db.Exec("FLUSH PRIVILEGES"); err != nil {
		return fmt.Errorf("flush privileges: %w", err)
	}

	if err := executeSQL(db, data.InitdbMariaDBTables); err != nil {
		return fmt.Errorf("execute tables init sql: %w", err)
	}
	if err := executeSQL(db, data.InitdbMariaDBCategories); err != nil {
		return fmt.Errorf("execute categories init sql: %w", err)
	}
	return nil
}

// executeSQL runs a multi-statement script, skipping '--' comment lines.
// Statement bodies must not contain literal semicolons.
func executeSQL(db *sql.DB, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), stmt)
		}
	}
	return nil
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
