package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/mmdatafocus/loans_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// cache key: <TypeName>:<key>, e.g. Loan:LN-1700000000000-AB12CD34
func redisKeyFor[T any](key string) string {
	return fmt.Sprintf("%s:%s", GetTypeName[T](), key)
}

// store instance in redis, obj should be a pointer
func StoreRedis[T any](obj *T, key string) error {
	return config.SetRedisObject(redisKeyFor[T](key), obj, GetCacheLifespan())
}

// retrieve cached instance; (nil, nil) on cache miss
func RetrieveRedis[T any](key string) (*T, error) {
	var obj T
	exists, err := config.GetRedisObject(redisKeyFor[T](key), &obj)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &obj, nil
}

func RemoveRedis[T any](key string) error {
	return config.RemoveRedisKey(redisKeyFor[T](key))
}
