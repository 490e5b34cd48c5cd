package cfddns_test

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Travis-Britz/cfddns"
)

func ExampleNew() {
	path, err := cfddns.DefaultSettingsPath()
	if err != nil {
		log.Fatal(err)
	}
	store := cfddns.NewFileStore(path)
	settings, err := store.Load()
	if err != nil {
		log.Fatalf("error loading settings: %s", err)
	}

	w, err := cfddns.New(&settings, store,
		cfddns.WithLogger(logrus.StandardLogger()),
		cfddns.WithTimeout(5*time.Second),
	)
	if err != nil {
		log.Fatalf("error creating workflow: %s", err)
	}

	// run once, e.g. from cron:
	if res := w.Update(context.Background()); !res.OK() {
		log.Fatalf("update failed: %s", res.Message())
	}
}

func ExampleInterfaceResolver() {
	// for hosts that hold their public address directly
	settings := cfddns.Settings{
		Token:    os.Getenv("CLOUDFLARE_API_TOKEN"),
		ZoneID:   os.Getenv("CLOUDFLARE_ZONE_ID"),
		RecordID: os.Getenv("CLOUDFLARE_RECORD_ID"),
	}
	w, err := cfddns.New(&settings, cfddns.NewFileStore(os.DevNull),
		cfddns.UsingResolver(cfddns.InterfaceResolver("eth0", "wlan0")),
	)
	if err != nil {
		log.Fatalf("error creating workflow: %s", err)
	}
	w.Update(context.Background())
}

func ExampleUsingWebResolver() {
	store := cfddns.NewFileStore("settings.ini")
	settings, err := store.Load()
	if err != nil {
		log.Fatalf("error loading settings: %s", err)
	}
	// I'm not vouching for this service, but it does return the IP of the client connection.
	// If possible, run your own and provide the URL here instead.
	w, err := cfddns.New(&settings, store,
		cfddns.UsingWebResolver("https://icanhazip.com/"),
	)
	if err != nil {
		log.Fatalf("error creating workflow: %s", err)
	}
	w.Update(context.Background())
}

func ExampleResolverFunc() {
	fn := func(ctx context.Context) (cfddns.PublicAddress, error) {
		select {
		case <-ctx.Done():
			return cfddns.PublicAddress{}, ctx.Err()
		case <-time.After(100 * time.Millisecond): // simulating some lookup method
			return cfddns.FromString("10.0.0.10").Resolve(ctx)
		}
	}
	settings := cfddns.Settings{}
	w, err := cfddns.New(&settings, cfddns.NewFileStore("settings.ini"),
		cfddns.UsingResolver(cfddns.ResolverFunc(fn)),
	)
	if err != nil {
		log.Fatalf("error creating workflow: %s", err)
	}
	w.ShowPublicIP(context.Background())
}
