package persian_test

import (
	"fmt"
	"time"

	persian "github.com/tartampluch/go-persian"
)

func ExampleFromUTC() {
	now := time.Date(2024, time.November, 9, 22, 38, 28, 0, time.UTC)

	persianNow, ok := persian.FromUTC(now)
	if !ok {
		return
	}
	fmt.Println(persianNow)
	// Output: 1403-08-20 02:08:28 UTC
}

func ExampleFromLocal() {
	now := time.Date(2024, time.November, 10, 2, 17, 54, 0, persian.Reference())

	persianNow, ok := persian.FromLocal(now)
	if !ok {
		return
	}
	fmt.Println(persianNow)
	// Output: 1403-08-20 02:17:54 +00:00
}

func ExampleFromDateTime() {
	evening := persian.DateTime{Year: 2024, Month: 11, Day: 9, Hour: 23, Minute: 7}

	persianEvening, ok := persian.FromDateTime(evening)
	if !ok {
		return
	}
	fmt.Println(persianEvening)
	// Output: 1403-08-19 23:07:00
}
